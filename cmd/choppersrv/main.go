package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "choppersrv.yml"
	k              = koanf.New(".")
)

func setupconfig() {
	k.Load(structs.Provider(Config{
		Addr:  ":8000",
		Nodes: []ObjSetup{}}, "koanf"), nil)
	if err := k.Load(file.Provider(ConfigFileName), yaml.Parser()); err != nil {
		errtxt := err.Error()
		if !strings.Contains(errtxt, "no such") { // file missing, who cares
			log.Fatalf("error loading config: %v", err)
		}
	}
}

func root() {
	str := `choppersrv communicates with Thorlabs MC2000 optical choppers and exposes
an HTTP interface to them.  This enables a server-client architecture, and
the clients can leverage the excellent HTTP libraries for any programming
language.

Usage:
	choppersrv <command>

Commands:
	run
	help
	mkconf
	conf
	version`
	fmt.Println(str)
}

func help() {
	str := `choppersrv is amenable to configuration via its .yaml file.  For a primer
on YAML, see https://yaml.org/start.html

Without a configuration, the server will close immediately and display an
error that there are no endpoints.

No two endpoints can have the same URL.

URLs may look like any variation between "omc/chopper" or "/omc/chopper/*",
the leading and trailing slashes, as well as the *, are added by the server
if missing.

Node "type" fields, case insensitive:
- Thorlabs:
	> MC2000 optical chopper "mc2000", "chopper"

With Mock: true every node is replaced by an in-memory mock, which is
useful for developing clients away from the bench.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("choppersrv version %v\n", Version)
}

func run() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	mux := BuildMux(c)
	log.Println("now listening for requests at ", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, mux))
}

func main() {
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd := strings.ToLower(args[1])
	switch cmd {
	case "help":
		help()
	case "mkconf":
		mkconf()
	case "conf":
		printconf()
	case "run":
		run()
	case "version":
		pversion()
	default:
		log.Fatal("unknown command")
	}
}
