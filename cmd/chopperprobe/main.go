// Command chopperprobe connects to an MC2000, verifies its identity, and
// prints the current state of every property.  Useful as a bench sanity
// check before starting choppersrv.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/theckman/yacspin"
	yml "gopkg.in/yaml.v2"

	"github.com/lightbench/chopper/mc2000"
)

func main() {
	var (
		addr      = flag.String("addr", "/dev/ttyUSB0", "serial device path, or host:port with -serial=false")
		useSerial = flag.Bool("serial", true, "connect over a local serial port rather than TCP")
		raw       = flag.String("raw", "", "send one raw command after the handshake and print the reply")
	)
	flag.Parse()

	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[59],
		Suffix:            " " + *addr,
		Message:           "connecting",
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		log.Fatal(err)
	}

	ch := mc2000.New(*addr, *useSerial)
	spinner.Start()
	err = ch.Connect()
	if err != nil {
		spinner.StopFailMessage(err.Error())
		spinner.StopFail()
		os.Exit(1)
	}
	defer ch.Close()

	spinner.Message("reading status")
	id, err := ch.Identification()
	if err != nil {
		spinner.StopFailMessage(err.Error())
		spinner.StopFail()
		os.Exit(1)
	}
	status, err := ch.Snapshot()
	if err != nil {
		spinner.StopFailMessage(err.Error())
		spinner.StopFail()
		os.Exit(1)
	}
	spinner.StopMessage(id)
	spinner.Stop()

	err = yml.NewEncoder(os.Stdout).Encode(status)
	if err != nil {
		log.Fatal(err)
	}

	if *raw != "" {
		resp, err := ch.Raw(*raw)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println(resp)
	}
}
