package cli

import (
	"testing"
	"time"

	"github.com/coreos/go-semver/semver"
	"github.com/stretchr/testify/assert"
)

func TestDuration(t *testing.T) {
	opts := struct {
		D Duration `short:"d"`
	}{}
	_, extraArgs, err := ParseFlags("test", &opts, []string{"test", "-d=3h"})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(extraArgs))
	assert.EqualValues(t, 3*time.Hour, opts.D)

	_, extraArgs, err = ParseFlags("test", &opts, []string{"test", "-d=3"})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(extraArgs))
	assert.EqualValues(t, 3*time.Second, opts.D)
}

func TestDurationDefault(t *testing.T) {
	opts := struct {
		D Duration `short:"d" default:"2s"`
	}{}
	_, extraArgs, err := ParseFlags("test", &opts, []string{"test"})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(extraArgs))
	assert.EqualValues(t, 2*time.Second, opts.D)
}

func TestURL(t *testing.T) {
	opts := struct {
		U URL `short:"u"`
	}{}
	_, extraArgs, err := ParseFlags("test", &opts, []string{"test", "-u=http://localhost:9091"})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(extraArgs))
	assert.EqualValues(t, "http://localhost:9091", opts.U)
	assert.Equal(t, "http://localhost:9091", opts.U.String())
}

func TestURLNoScheme(t *testing.T) {
	var u URL
	assert.Error(t, u.UnmarshalFlag("pushgateway/metrics"))
	assert.NoError(t, u.UnmarshalFlag(""))
}

func TestVersion(t *testing.T) {
	v, err := NewVersion("1.2.3")
	assert.NoError(t, err)
	assert.False(t, v.IsGTE)
	assert.True(t, v.IsSet)
	assert.Equal(t, "1.2.3", v.String())
	assert.True(t, v.Satisfies(*semver.New("1.2.3")))
	assert.False(t, v.Satisfies(*semver.New("1.2.4")))
}

func TestVersionGTE(t *testing.T) {
	v, err := NewVersion(">= 1.2.3")
	assert.NoError(t, err)
	assert.True(t, v.IsGTE)
	assert.Equal(t, ">=1.2.3", v.String())
	assert.True(t, v.Satisfies(*semver.New("1.3.0")))
	assert.False(t, v.Satisfies(*semver.New("1.2.2")))
}

func TestVersionInvalid(t *testing.T) {
	_, err := NewVersion("one point two")
	assert.Error(t, err)
}

func TestFilepaths(t *testing.T) {
	fps := Filepaths{"a.conf", "b/c.conf"}
	assert.Equal(t, []string{"a.conf", "b/c.conf"}, fps.AsStrings())
}
