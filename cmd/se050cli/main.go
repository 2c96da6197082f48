// Command se050cli exercises a minimal session against an SE050 secure
// element: interface soft reset, applet selection and a TRNG draw.
package main

import (
	"encoding/hex"
	"flag"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/nxpse050/se050go/pkg/bus"
	_ "github.com/nxpse050/se050go/pkg/bus/i2c"
	_ "github.com/nxpse050/se050go/pkg/bus/virtual"
	"github.com/nxpse050/se050go/pkg/config"
	"github.com/nxpse050/se050go/pkg/se050"
	"github.com/nxpse050/se050go/pkg/t1"
)

func main() {
	cfgPath := flag.String("c", "", "path to an INI config file (defaults baked in if omitted)")
	verbose := flag.Bool("v", false, "enable debug logging")
	randomBytes := flag.Int("n", 16, "number of random bytes to request")
	flag.Parse()

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		cfg = loaded
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	if *verbose {
		level = log.DebugLevel
	}
	log.SetLevel(level)

	b, err := bus.New(cfg.Bus.Adapter, cfg.Bus.Channel)
	if err != nil {
		log.Fatalf("open bus %s on %s: %v", cfg.Bus.Adapter, cfg.Bus.Channel, err)
	}

	client := se050.NewClient(b, t1.Config{
		Addr:              cfg.Bus.Addr,
		HostNAD:           cfg.T1.HostNAD,
		CardNAD:           cfg.T1.CardNAD,
		ValidateNAD:       cfg.T1.ValidateNAD,
		FallbackIFSC:      cfg.T1.FallbackIFSC,
		FallbackBWTMillis: cfg.T1.FallbackBWTMillis,
	})

	if err := client.Enable(); err != nil {
		log.Fatalf("enable: %v", err)
	}
	log.Infof("applet version 0x%06x, features 0x%04x, secure box 0x%04x",
		client.App.AppletVersion, client.App.Features, client.App.SecureBoxVersion)
	log.Infof("ATR: IFSC=%d BWT=%dms historical=% x", client.ATR.DLLP.IFSC, client.ATR.DLLP.BWTMillis, client.ATR.HistoricalBytes)

	random, err := client.GetRandom(*randomBytes)
	if err != nil {
		log.Fatalf("get random: %v", err)
	}
	fmt.Println(hex.EncodeToString(random))
}
