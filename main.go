package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"murmur/audio"
	"murmur/beep"
	"murmur/clipboard"
	"murmur/encoder"
	"murmur/hotkey"
	"murmur/log"
	"murmur/notify"
	"murmur/pipeline"
	"murmur/shutdown"
	"murmur/transcriber"
)

var version = "dev"

var autoPaste bool

var shutdownOnce sync.Once

func gracefulShutdown() {
	shutdownOnce.Do(func() {
		log.Info("shutting down")
		log.Close()
		os.Exit(0)
	})
}

// outputText delivers a finished transcript: copy to the clipboard and,
// when autopaste is on, send the paste keystroke into the focused window.
func outputText(text string) {
	if autoPaste {
		if err := clipboard.PastePreserving(text); err != nil {
			log.Errorf("paste failed: %v", err)
			clipboard.Copy(text)
		}
		return
	}
	if err := clipboard.Copy(text); err != nil {
		log.Errorf("clipboard copy failed: %v", err)
	}
}

func run() {
	autoPasteFlag := flag.Bool("autopaste", true, "Auto-paste to focused window after transcription")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	langFlag := flag.String("lang", "en", "Language code for transcription (e.g., en, es, fr). Empty = auto-detect")
	silentFlag := flag.Bool("silent", false, "Disable audible start/stop cues")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	flag.Parse()

	// Resolve log directory early
	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)

	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	crashFile, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		fmt.Fprintf(crashFile, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(crashFile, debug.CrashOptions{})
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *versionFlag {
		fmt.Printf("murmur %s\n", version)
		os.Exit(0)
	}

	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	engine, err := transcriber.New()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if *langFlag != "" {
		engine.SetLanguage(*langFlag)
	}

	autoPaste = *autoPasteFlag
	if *silentFlag {
		beep.Disable()
	}

	if autoPaste {
		if err := clipboard.Init(); err != nil {
			fmt.Printf("Warning: paste init failed: %v\n", err)
		}
	}

	actx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer actx.Close()

	deviceName := *deviceFlag
	if deviceName == "" && *setupFlag {
		dev, err := selectDevice(actx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
		} else if dev != nil {
			deviceName = dev.Name
		}
	}

	pipelineCtx := audio.Context(actx)
	if deviceName != "" {
		pipelineCtx = &preferredDeviceContext{Context: actx, name: deviceName}
	}

	ctrl := pipeline.New(pipeline.Config{
		Audio: pipelineCtx,
		Capture: audio.CaptureConfig{
			SampleRate: encoder.SampleRate,
			Channels:   encoder.Channels,
		},
		Engine:   engine,
		Notifier: notify.NewDesktop(),
		Output:   outputText,
	})

	watcher := audio.NewWatcher(pipelineCtx, 3*time.Second)
	watcher.Start()
	defer watcher.Stop()

	stopMonitor := ctrl.StartDeviceMonitor(watcher.Changes())
	defer stopMonitor()

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		<-sigChan
		gracefulShutdown()
	}()

	hk := hotkey.New()
	if err := hk.Register(); err != nil {
		log.Errorf("hotkey register error: %v", err)
		fmt.Printf("Error registering hotkey: %v\n", err)
		os.Exit(1)
	}
	defer hk.Unregister()

	log.Infof("murmur %s started engine=%s device=%q", version, engine.Name(), deviceName)
	fmt.Println("Press Ctrl+Shift+Space to toggle recording. Ctrl+C to quit.")

	for range hk.Keydown() {
		if err := ctrl.Toggle(); err != nil {
			log.Warnf("toggle: %v", err)
		}
	}
}
