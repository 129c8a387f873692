// Command statushost serves a thing to status map for the rgbops relay to
// poll. Statuses are changed by typing "<thing> <status>" on stdin.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/kr/pretty"
	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"
)

var data sync.Map

func handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot()); err != nil {
		log.WithError(err).Warn("Could not write statuses.")
	}
}

func snapshot() map[string]string {
	tmpMap := make(map[string]string)
	data.Range(func(k, v interface{}) bool {
		tmpMap[k.(string)] = v.(string)
		return true
	})
	return tmpMap
}

func main() {
	listen := flag.StringP("listen", "l", ":8080", "address to serve statuses on")
	flag.Parse()

	for _, thing := range flag.Args() {
		data.Store(thing, "ok")
	}
	go func() {
		http.HandleFunc("/", handler)
		if err := http.ListenAndServe(*listen, nil); err != nil {
			log.WithError(err).Fatal("Could not serve statuses.")
		}
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("thing status> ")
		if !scanner.Scan() {
			return
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "q" {
			return
		}
		parts := strings.Fields(text)
		if len(parts) != 2 {
			fmt.Println("expected: <thing> <status>")
			continue
		}
		data.Store(parts[0], parts[1])
		pretty.Println(snapshot())
	}
}
