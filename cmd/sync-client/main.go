package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"github.com/goccy/go-json"

	synchub "bookhub/internal/sync"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:7070", "TCP sync server address")
	raw := flag.Bool("raw", false, "print lines exactly as received")
	flag.Parse()

	for {
		if err := run(*addr, *raw); err != nil {
			log.Printf("[sync-client] disconnected: %v", err)
		}
		time.Sleep(1 * time.Second) // auto reconnect
	}
}

func run(addr string, raw bool) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Printf("[sync-client] connected to %s", addr)

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()
		if raw {
			fmt.Println(string(line))
			continue
		}
		fmt.Println(describe(line))
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return os.ErrClosed
}

// describe renders a catalog event as one readable line. Anything that
// is not a book event is printed unchanged.
func describe(line []byte) string {
	var ev synchub.BookEvent
	if err := json.Unmarshal(line, &ev); err != nil || ev.ISBN == "" {
		return string(line)
	}

	ts := ev.At.Local().Format(time.TimeOnly)
	switch ev.Type {
	case synchub.BookAdded:
		return fmt.Sprintf("%s + %q by %s (%s)", ts, ev.Title, ev.Author, ev.ISBN)
	case synchub.BookRemoved:
		return fmt.Sprintf("%s - %q (%s)", ts, ev.Title, ev.ISBN)
	case synchub.BookBorrowed:
		return fmt.Sprintf("%s > %q borrowed by %s", ts, ev.Title, ev.UserID)
	case synchub.BookReturned:
		return fmt.Sprintf("%s < %q returned by %s", ts, ev.Title, ev.UserID)
	default:
		return string(line)
	}
}
