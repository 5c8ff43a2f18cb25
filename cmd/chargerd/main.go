package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"chargerd-go/bus"
	"chargerd-go/services/bridge"
	"chargerd-go/services/charger"
	"chargerd-go/services/config"
	"chargerd-go/services/irq"
	"chargerd-go/services/monitor"
	"chargerd-go/types"
)

// version is injected at build time via ldflags
var version = "dev"

type options struct {
	Device      string
	ConfigPath  string
	Transport   string
	MQTTUrl     string
	Verbose     bool
	SuspendTest bool
	SimDC       bool
}

func main() {
	opts := parseFlags()
	logger := setupLogger(opts.Verbose)

	doc, err := loadDocument(opts)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}
	prof, err := doc.Profile()
	if err != nil {
		logger.WithError(err).Fatal("Invalid charger profile")
	}
	ccfg := prof.ToCharger()

	logger.WithFields(logrus.Fields{
		"version":   version,
		"device":    opts.Device,
		"transport": opts.Transport,
		"type_c":    ccfg.TypeC,
		"dc_detect": ccfg.DCDetect,
	}).Info("Starting chargerd")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		logger.Info("Shutdown signal received")
		cancel()
	}()

	b := bus.NewBus(32)
	conn := b.NewConnection("chargerd")
	config.NewConfigService(logger).Publish(conn, doc)

	if _, ok := doc["bridge"]; ok {
		go bridge.Start(ctx, b.NewConnection("bridge"), logger)
	} else {
		logger.Warn("No bridge configured; state stays on the local bus")
	}

	hw, err := openHardware(opts, prof, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open hardware")
	}
	defer hw.Close()

	ch, err := charger.Attach(ccfg, charger.Options{
		Regs:      hw.regs,
		DCPin:     hw.dc,
		Cable:     hw.cable,
		InitialBC: types.BCDisconnected,
		Conn:      conn,
		Log:       logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Charger attach failed")
	}

	w := irq.New(16, logger.WithField("bin", "chargerd"))
	w.Start(ctx)
	if err := wireIRQ(w, hw, ccfg, ch); err != nil {
		logger.WithError(err).Fatal("IRQ setup failed")
	}
	go ch.ServeControl(ctx, b.NewConnection("control"))
	monitor.New(ch, logger).Start(ctx, b.NewConnection("monitor"), monitor.DefaultInterval)

	if opts.SuspendTest {
		runSuspendTest(ch, logger)
		cancel()
	}

	<-ctx.Done()
	if err := ch.Close(); err != nil {
		logger.WithError(err).Warn("Charger close")
	}
	<-w.Done()
	d := ch.Diagnostics()
	logger.WithFields(logrus.Fields{
		"io_errors":  d.IOErrors,
		"invariants": d.Invariants,
		"irq_drops":  d.MaskedIRQDrops,
		"isr_drops":  w.ISRDrops(),
	}).Info("chargerd stopped")
}

// wireIRQ routes DC-detect edges and the PMIC INT line into the charger.
// DC edges are not debounced here: every level change posts a settle-delayed
// re-sample, so the last edge of a bounce always wins.
func wireIRQ(w *irq.Worker, hw *hardware, cfg charger.Config, ch *charger.Charger) error {
	if cfg.DCDetect && hw.dcIRQ != nil {
		if _, err := w.Register("dc_det", hw.dcIRQ, irq.EdgeBoth, 0, false,
			func(irq.Event) { ch.DCChanged() }); err != nil {
			return err
		}
	}
	if hw.intIRQ != nil {
		// Active-low open drain: assertion is the physical falling edge.
		if _, err := w.Register("pmic_int", hw.intIRQ, irq.EdgeRising, 0, true,
			func(irq.Event) { ch.ServicePMICInt() }); err != nil {
			return err
		}
	}
	return nil
}

func runSuspendTest(ch *charger.Charger, logger *logrus.Logger) {
	if err := ch.Suspend(); err != nil {
		logger.WithError(err).Error("Suspend failed")
		return
	}
	time.Sleep(100 * time.Millisecond)
	if err := ch.Resume(); err != nil {
		logger.WithError(err).Error("Resume failed")
		return
	}
	logger.WithField("value", ch.Value()).Info("Suspend/resume cycle complete")
}

// -----------------------------------------------------------------------------
// Helpers & Flags
// -----------------------------------------------------------------------------

func loadDocument(opts options) (config.Document, error) {
	var (
		doc config.Document
		err error
	)
	if opts.ConfigPath != "" {
		doc, err = config.Load(opts.ConfigPath)
	} else {
		doc, err = config.Embedded(opts.Device)
	}
	if err != nil {
		return nil, err
	}
	if opts.MQTTUrl != "" {
		raw, err := json.Marshal(bridge.Config{
			Transport: bridge.TransportConfig{
				Type: "mqtt",
				MQTT: &bridge.MQTTConfig{URL: opts.MQTTUrl, ClientID: "chargerd-" + opts.Device},
			},
			Prefix: "chargerd/" + opts.Device,
		})
		if err != nil {
			return nil, err
		}
		doc["bridge"] = raw
	}
	return doc, nil
}

func parseFlags() options {
	var o options
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.StringVar(&o.Device, "device", getEnv("CHARGERD_DEVICE", "rk3399-ref"), "Embedded board profile")
	flag.StringVar(&o.ConfigPath, "config", getEnv("CHARGERD_CONFIG", ""), "Board config JSON file (overrides -device)")
	flag.StringVar(&o.Transport, "transport", getEnv("CHARGERD_TRANSPORT", "sim"), "Register transport: sim or periph")
	flag.StringVar(&o.MQTTUrl, "mqtt-url", getEnv("CHARGERD_MQTT_URL", ""), "MQTT URL (overrides the profile bridge section)")
	flag.BoolVar(&o.Verbose, "verbose", getEnv("CHARGERD_VERBOSE", "false") == "true", "Verbose logging")
	flag.BoolVar(&o.SuspendTest, "suspend-test", false, "Run one suspend/resume cycle and exit")
	flag.BoolVar(&o.SimDC, "sim-dc", getEnv("CHARGERD_SIM_DC", "false") == "true", "Sim transport: DC adapter present")
	flag.Parse()

	if *showVersion {
		fmt.Printf("chargerd %s\n", version)
		os.Exit(0)
	}
	if o.Device == "" {
		o.Device = "rk3399-ref"
	}
	return o
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func setupLogger(verbose bool) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}
