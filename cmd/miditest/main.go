package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	flag "github.com/spf13/pflag"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"go-hemisphere/clock"
	"go-hemisphere/midi"
)

func main() {
	bpm := flag.Float64P("bpm", "b", 120, "tempo for send-clock")
	seconds := flag.IntP("seconds", "s", 0, "stop after this many seconds (0 runs until interrupted)")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if *seconds > 0 {
		ctx, cancel = context.WithTimeout(ctx, time.Duration(*seconds)*time.Second)
		defer cancel()
	}

	var err error
	switch args[0] {
	case "list":
		listPorts()
	case "monitor":
		err = monitorClock(ctx, arg(args, 1))
	case "send-clock":
		err = sendClock(ctx, arg(args, 1), *bpm)
	case "poll":
		pollPorts(ctx)
	default:
		usage()
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func usage() {
	fmt.Println("MIDI clock test scripts")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list                - List all MIDI ports")
	fmt.Println("  monitor <port>      - Show incoming clock tempo and transport")
	fmt.Println("  send-clock <port>   - Send start, clock at --bpm, then stop")
	fmt.Println("  poll                - Watch for port changes")
	fmt.Println("")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func listPorts() {
	fmt.Println("=== MIDI Input Ports ===")
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins  []drivers.In
		outs []drivers.Out
	}
	ch := make(chan result, 1)
	go func() {
		ins := gomidi.GetInPorts()
		outs := gomidi.GetOutPorts()
		ch <- result{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		for i, p := range r.ins {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, p := range r.outs {
			fmt.Printf("  %d: %s\n", i, p.String())
		}
	case <-time.After(midi.ScanTimeout):
		fmt.Println("\nTIMEOUT! CoreMIDI is hung.")
		fmt.Println("Fix: sudo killall coreaudiod midiserver")
	}
}

// monitorClock prints the tempo implied by the clock pulses counted each
// second, plus any transport messages
func monitorClock(ctx context.Context, pattern string) error {
	in, err := midi.FindIn(pattern)
	if err != nil {
		return err
	}

	c := midi.NewClockIn()
	if err := c.Open(in); err != nil {
		return err
	}
	defer c.Close()

	fmt.Printf("Listening on %s. Ctrl+C to exit.\n", in.String())

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	last := c.Pulses()
	lastTime := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			l := c.Take()
			switch {
			case l.Start:
				fmt.Println("START")
			case l.Continue:
				fmt.Println("CONTINUE")
			case l.Stop:
				fmt.Println("STOP")
			}

			if now.Sub(lastTime) < time.Second {
				continue
			}
			pulses := c.Pulses()
			n := pulses - last
			if n > 0 {
				beats := float64(n) / clock.MIDIOutPPQN
				fmt.Printf("[%s] %3d clocks  %6.1f bpm\n",
					now.Format("15:04:05"), n, beats*60/now.Sub(lastTime).Seconds())
			}
			last, lastTime = pulses, now
		}
	}
}

// sendClock runs a free-running MIDI clock on an output port
func sendClock(ctx context.Context, pattern string, bpm float64) error {
	if bpm <= 0 {
		return fmt.Errorf("bpm must be positive")
	}
	out, err := midi.FindOut(pattern)
	if err != nil {
		return err
	}

	send, err := gomidi.SendTo(out)
	if err != nil {
		return err
	}
	defer out.Close()

	interval := time.Duration(float64(time.Minute) / (bpm * clock.MIDIOutPPQN))
	fmt.Printf("Sending clock to %s at %.1f bpm (%v per pulse). Ctrl+C to stop.\n", out.String(), bpm, interval)

	if err := send(midi.RealtimeStart.Message()); err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pulses int
	for {
		select {
		case <-ctx.Done():
			fmt.Printf("\nSent %d clocks\n", pulses)
			return send(midi.RealtimeStop.Message())
		case <-ticker.C:
			if err := send(midi.RealtimeClock.Message()); err != nil {
				return err
			}
			pulses++
		}
	}
}

func pollPorts(ctx context.Context) {
	fmt.Println("Polling for port changes...")
	fmt.Println("Connect/disconnect devices to test. Ctrl+C to exit.")

	ps := midi.NewPortScanner()
	go ps.Run(ctx)

	for ev := range ps.Events() {
		state := "connected"
		if ev.Type == midi.PortDisconnected {
			state = "disconnected"
		}
		fmt.Printf("[%s] %-3s %s %s\n", time.Now().Format("15:04:05"), ev.Dir, ev.Name, state)
	}
}
