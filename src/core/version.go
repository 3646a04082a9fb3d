package core

import "github.com/coreos/go-semver/semver"

// RawVersion is the unparsed raw version of randbench.
const RawVersion = "1.2.0"

// RandbenchVersion is the current version of randbench.
var RandbenchVersion = *semver.New(RawVersion)
