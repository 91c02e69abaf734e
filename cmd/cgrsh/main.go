// cgrsh is an interactive shell for poking at a running cgrd instance:
// add/remove contacts and ranges, revise confidence/rate, and ask for
// the best routes to a destination.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"cgrengine/internal/adapter/grpcadapter"
	"cgrengine/internal/domain"

	"github.com/peterh/liner"
)

func main() {
	addr := flag.String("addr", "localhost:7600", "address of the cgrd instance")
	timeout := flag.Duration("timeout", 5*time.Second, "request timeout")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	conn, err := grpcadapter.Connect(*addr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *addr, err)
	}
	defer conn.Close()
	client := grpcadapter.NewClient(conn)

	currentAddr := *addr
	fmt.Printf("cgr interactive shell. Connected to %s\n", currentAddr)
	fmt.Println("Available commands: addcontact/addrange/rmcontact/rmrange/confidence/xmitrate/routes/use/exit")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(fmt.Sprintf("cgr[%s]> ", currentAddr))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("Aborted")
				continue
			}
			break
		}
		line.AppendHistory(input)

		args := strings.Fields(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}
		cmd := args[0]

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)

		switch cmd {
		case "addcontact":
			if len(args) < 7 {
				fmt.Println("Usage: addcontact <from> <to> <fromTime> <toTime> <xmitRate> <confidence>")
				cancel()
				continue
			}
			c, perr := parseContact(args[1:])
			if perr != nil {
				fmt.Println(perr)
				cancel()
				continue
			}
			h, res, err := client.AddContact(ctx, c)
			if err != nil {
				fmt.Printf("AddContact failed: %v\n", err)
			} else {
				fmt.Printf("AddContact: handle=%d result=%d\n", h, res)
			}

		case "addrange":
			if len(args) < 5 {
				fmt.Println("Usage: addrange <from> <to> <fromTime> <toTime> [owlt]")
				cancel()
				continue
			}
			r, perr := parseRange(args[1:])
			if perr != nil {
				fmt.Println(perr)
				cancel()
				continue
			}
			h, res, err := client.AddRange(ctx, r)
			if err != nil {
				fmt.Printf("AddRange failed: %v\n", err)
			} else {
				fmt.Printf("AddRange: handle=%d result=%d\n", h, res)
			}

		case "rmcontact":
			if len(args) < 2 {
				fmt.Println("Usage: rmcontact <handle>")
				cancel()
				continue
			}
			h, perr := strconv.Atoi(args[1])
			if perr != nil {
				fmt.Println("invalid handle:", perr)
				cancel()
				continue
			}
			if err := client.RemoveContact(ctx, domain.ContactHandle(h)); err != nil {
				fmt.Printf("RemoveContact failed: %v\n", err)
			} else {
				fmt.Println("RemoveContact succeeded")
			}

		case "rmrange":
			if len(args) < 2 {
				fmt.Println("Usage: rmrange <handle>")
				cancel()
				continue
			}
			h, perr := strconv.Atoi(args[1])
			if perr != nil {
				fmt.Println("invalid handle:", perr)
				cancel()
				continue
			}
			if err := client.RemoveRange(ctx, domain.RangeHandle(h)); err != nil {
				fmt.Printf("RemoveRange failed: %v\n", err)
			} else {
				fmt.Println("RemoveRange succeeded")
			}

		case "confidence":
			if len(args) < 3 {
				fmt.Println("Usage: confidence <handle> <value>")
				cancel()
				continue
			}
			h, perr1 := strconv.Atoi(args[1])
			v, perr2 := strconv.ParseFloat(args[2], 64)
			if perr1 != nil || perr2 != nil {
				fmt.Println("invalid arguments")
				cancel()
				continue
			}
			if err := client.ReviseContactConfidence(ctx, domain.ContactHandle(h), v); err != nil {
				fmt.Printf("ReviseContactConfidence failed: %v\n", err)
			} else {
				fmt.Println("confidence revised")
			}

		case "xmitrate":
			if len(args) < 3 {
				fmt.Println("Usage: xmitrate <handle> <value>")
				cancel()
				continue
			}
			h, perr1 := strconv.Atoi(args[1])
			v, perr2 := strconv.ParseFloat(args[2], 64)
			if perr1 != nil || perr2 != nil {
				fmt.Println("invalid arguments")
				cancel()
				continue
			}
			if err := client.ReviseContactXmitRate(ctx, domain.ContactHandle(h), v); err != nil {
				fmt.Printf("ReviseContactXmitRate failed: %v\n", err)
			} else {
				fmt.Println("xmit rate revised")
			}

		case "routes":
			if len(args) < 3 {
				fmt.Println("Usage: routes <terminus> <now> [expirationTime]")
				cancel()
				continue
			}
			term, perr1 := strconv.ParseUint(args[1], 10, 64)
			now, perr2 := strconv.ParseInt(args[2], 10, 64)
			if perr1 != nil || perr2 != nil {
				fmt.Println("invalid arguments")
				cancel()
				continue
			}
			expiration := domain.MaxTime
			if len(args) >= 4 {
				e, perr3 := strconv.ParseInt(args[3], 10, 64)
				if perr3 != nil {
					fmt.Println("invalid expirationTime")
					cancel()
					continue
				}
				expiration = domain.Time(e)
			}
			bdl := domain.Bundle{Terminus: domain.NodeID(term), ExpirationTime: expiration, Size: 1}
			routes, code, err := client.GetBestRoutes(ctx, domain.Time(now), bdl, nil)
			if err != nil {
				fmt.Printf("GetBestRoutes failed: %v\n", err)
			} else {
				fmt.Printf("GetBestRoutes: code=%d\n", code)
				for _, r := range routes {
					fmt.Printf("  neighbor=%d arrival=%d confidence=%.4f hops=%d\n",
						r.Neighbor, r.ArrivalTime, r.ArrivalConfidence, len(r.Hops))
				}
			}

		case "use":
			if len(args) < 2 {
				fmt.Println("Usage: use <addr>")
				cancel()
				continue
			}
			newAddr := args[1]
			newConn, err := grpcadapter.Connect(newAddr)
			if err != nil {
				fmt.Printf("failed to connect to %s: %v\n", newAddr, err)
				cancel()
				continue
			}
			conn.Close()
			conn = newConn
			client = grpcadapter.NewClient(conn)
			currentAddr = newAddr
			fmt.Printf("switched connection to %s\n", currentAddr)

		case "exit", "quit":
			fmt.Println("Bye!")
			cancel()
			return

		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}

		cancel()
	}
}

func parseContact(args []string) (domain.Contact, error) {
	from, err1 := strconv.ParseUint(args[0], 10, 64)
	to, err2 := strconv.ParseUint(args[1], 10, 64)
	fromTime, err3 := strconv.ParseInt(args[2], 10, 64)
	toTime, err4 := strconv.ParseInt(args[3], 10, 64)
	xmitRate, err5 := strconv.ParseFloat(args[4], 64)
	confidence, err6 := strconv.ParseFloat(args[5], 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || err6 != nil {
		return domain.Contact{}, fmt.Errorf("invalid contact arguments")
	}
	return domain.Contact{
		From: domain.NodeID(from), To: domain.NodeID(to),
		FromTime: domain.Time(fromTime), ToTime: domain.Time(toTime),
		XmitRate: xmitRate, Confidence: confidence, Type: domain.Scheduled,
	}, nil
}

func parseRange(args []string) (domain.Range, error) {
	from, err1 := strconv.ParseUint(args[0], 10, 64)
	to, err2 := strconv.ParseUint(args[1], 10, 64)
	fromTime, err3 := strconv.ParseInt(args[2], 10, 64)
	toTime, err4 := strconv.ParseInt(args[3], 10, 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return domain.Range{}, fmt.Errorf("invalid range arguments")
	}
	var owlt int64
	if len(args) >= 5 {
		o, err5 := strconv.ParseInt(args[4], 10, 64)
		if err5 != nil {
			return domain.Range{}, fmt.Errorf("invalid owlt argument")
		}
		owlt = o
	}
	return domain.Range{
		From: domain.NodeID(from), To: domain.NodeID(to),
		FromTime: domain.Time(fromTime), ToTime: domain.Time(toTime),
		OWLT: domain.Time(owlt),
	}, nil
}
