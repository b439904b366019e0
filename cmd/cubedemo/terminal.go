// terminal.go - raw-terminal ANSI preview frontend
//
// Grounded on terminal_host.go's raw-mode setup/restore pattern, used here
// to drive a headless-friendly preview of the software backend's frame
// buffer.

package main

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/natanbc/fpga-gpu/gl"
)

const terminalFrameDelay = 66 * time.Millisecond

func runTerminalFrontend(sw *gl.SWContext, vbo []gl.GouraudVertex, ibo []uint16) {
	fd := int(os.Stdout.Fd())
	oldState, err := term.MakeRaw(fd)
	rawModeSet := err == nil
	if rawModeSet {
		defer func() { _ = term.Restore(fd, oldState) }()
	} else {
		fmt.Fprintf(os.Stderr, "cubedemo: raw mode unavailable, falling back to plain output: %v\n", err)
	}

	var angle float32
	for frame := 0; frame < 200; frame++ {
		angle += 0.05
		spin(sw, angle, vbo, ibo)
		renderAnsiFrame(sw)
		time.Sleep(terminalFrameDelay)
	}
}

// renderAnsiFrame downsamples the software frame buffer to one terminal
// cell per 8x16 block and prints a space with a 24-bit background color.
func renderAnsiFrame(sw *gl.SWContext) {
	w, h := sw.Width(), sw.Height()
	frame := sw.Frame()

	fmt.Print("\x1b[H")
	const cellW, cellH = 8, 16
	for y := 0; y+cellH <= h; y += cellH {
		for x := 0; x+cellW <= w; x += cellW {
			i := (y*w + x) * 3
			b, g, r := frame[i], frame[i+1], frame[i+2]
			fmt.Printf("\x1b[48;2;%d;%d;%dm ", r, g, b)
		}
		fmt.Print("\x1b[0m\r\n")
	}
}
