// Command hioloadhttpd is a minimal static file server built on the
// event loop / HTTPD engine: bind an address, mount a directory trigger,
// run the loop until signaled.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/momentics/hioload-http/el"
	"github.com/momentics/hioload-http/httpd"
	"github.com/momentics/hioload-http/wire"
)

func main() {
	addr := flag.String("listen", ":8080", "address to listen on")
	root := flag.String("root", ".", "directory to serve")
	maxConns := flag.Int("max-conns", 1000, "maximum concurrent connections")
	flag.Parse()

	loop, err := el.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "hioloadhttpd: event loop init: %v\n", err)
		os.Exit(127)
	}
	defer loop.Close()

	trie := httpd.NewTrie()
	staticCb := httpd.StaticDirTrigger(*root)
	for _, m := range []wire.Method{wire.GET, wire.HEAD} {
		trie.Register(m, "/", &httpd.Trigger{Cb: staticCb})
	}

	cfg := httpd.Apply(httpd.WithMaxConns(*maxConns))
	ln, err := httpd.Listen(*addr, loop, cfg, trie)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hioloadhttpd: listen on %s: %v\n", *addr, err)
		os.Exit(127)
	}
	defer ln.Close()

	log.Printf("hioloadhttpd: serving %s on %s", *root, *addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		loop.Unloop()
	}()

	// The listener and its spawned connections are unref'd (matching the
	// original httpd_listener_register/httpd_accept convention), so the
	// daemon drives its own tick loop rather than relying on Loop.Loop's
	// active-reference auto-idle-exit, which is meant for callers where
	// no ref'd work implies nothing left to do.
	const maxTick = 59000
	for !loop.IsUnlooped() {
		if err := loop.LoopTimeout(maxTick); err != nil {
			fmt.Fprintf(os.Stderr, "hioloadhttpd: loop error: %v\n", err)
			os.Exit(1)
		}
	}
}
