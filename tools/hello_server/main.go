package main

import (
	"fmt"
	"net/http"

	"github.com/thought-machine/randbench/src/cli"
	logger "github.com/thought-machine/randbench/src/cli/logging"
	"github.com/thought-machine/randbench/tools/hello_server/greeter"
)

var log = logger.Log

var opts = struct {
	Usage      string
	Verbosity  cli.Verbosity `short:"v" long:"verbosity" default:"notice" description:"Verbosity of output (higher number = more output)"`
	Port       int           `short:"p" long:"port" description:"The port to run the server on" default:"8080"`
	Salutation string        `short:"s" long:"salutation" default:"Hello" description:"The word to greet things with"`
}{
	Usage: `
hello_server is a tiny HTTP server that returns static greetings.
GET / greets the world; /earth and /moon greet those; /hello/<name> greets a person and
/people?name=a&name=b greets several at once.
`,
}

func main() {
	cli.ParseFlagsOrDie("Hello server", &opts)
	cli.InitLogging(opts.Verbosity)

	log.Notice("Started hello server at 127.0.0.1:%v", opts.Port)
	err := http.ListenAndServe(fmt.Sprint(":", opts.Port), greeter.New(opts.Salutation))
	if err != nil {
		log.Panic(err)
	}
}
