// Package doctor runs non-interactive environment checks for listen.
package doctor

import (
	"fmt"
	"os"
	"path/filepath"

	"listen/audio"
	"listen/llm"
	"listen/log"
	"listen/transcriber"
)

// Run executes the diagnostic checks and returns an exit code
// (0 = all pass, 1 = any fail). Checks are independent; a failure does
// not stop the rest.
func Run(cfg transcriber.Config) int {
	fmt.Println("listen doctor - environment diagnostics")
	fmt.Println("=======================================")

	allPass := true
	if !checkLogDir() {
		allPass = false
	}
	if !checkAudio() {
		allPass = false
	}
	if !checkEngine(cfg) {
		allPass = false
	}
	if !checkProvider() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
		return 0
	}
	fmt.Println("Some checks failed. See details above.")
	return 1
}

func checkLogDir() bool {
	fmt.Println()
	fmt.Println("[1/4] Log directory")

	dir := log.Dir()
	if err := log.EnsureDir(); err != nil {
		fmt.Printf("  FAIL: cannot create %s: %v\n", dir, err)
		return false
	}
	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		fmt.Printf("  FAIL: cannot write to %s: %v\n", dir, err)
		return false
	}
	os.Remove(probe)
	fmt.Printf("  PASS: %s writable\n", dir)
	return true
}

func checkAudio() bool {
	fmt.Println()
	fmt.Println("[2/4] Audio capture")

	ctx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer ctx.Close()

	devices, err := ctx.Devices()
	if err != nil {
		fmt.Printf("  FAIL: cannot list devices: %v\n", err)
		return false
	}
	if len(devices) == 0 {
		fmt.Println("  FAIL: no capture devices found")
		return false
	}
	fmt.Printf("  PASS: %d capture device(s)\n", len(devices))
	for _, d := range devices {
		fmt.Printf("    - %s\n", d.Name)
	}
	return true
}

func checkEngine(cfg transcriber.Config) bool {
	fmt.Println()
	fmt.Println("[3/4] Transcription engine")

	eng, err := transcriber.New(cfg)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("  PASS: %s engine ready\n", eng.Name())
	return true
}

func checkProvider() bool {
	fmt.Println()
	fmt.Println("[4/4] Text improvement provider")

	p := llm.Detect()
	if p.Kind == llm.KindNone {
		fmt.Println("  PASS: no provider configured; improve passes text through")
		return true
	}
	fmt.Printf("  PASS: %s (%s)\n", p.Kind, p.Model)
	return true
}
