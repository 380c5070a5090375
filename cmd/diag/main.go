// Command diag computes a single chart against the configured engine and
// prints it, for checking an ephemeris setup without starting the server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/siliconsteed/rva-api/internal/ephemeris"
	"github.com/siliconsteed/rva-api/internal/timescale"
	"github.com/siliconsteed/rva-api/internal/vedic"
)

func main() {
	date := flag.String("date", "1990-01-15", "local date YYYY-MM-DD")
	clock := flag.String("time", "14:30", "local time HH:MM")
	tz := flag.Float64("tz", 5.5, "timezone offset in hours")
	mode := flag.String("mode", "analytic", "ephemeris mode: analytic, horizons or auto")
	sidereal := flag.String("sidereal", "lahiri", "ayanamsa")
	ephe := flag.String("ephe", "./ephe", "directory holding elements.txt")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	m, err := ephemeris.ParseMode(*mode)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(2)
	}
	sm, err := ephemeris.ParseSiderealMode(*sidereal)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(2)
	}

	engine, err := ephemeris.New(ephemeris.Config{
		Mode:            m,
		EphePath:        *ephe,
		Sidereal:        sm,
		HorizonsURL:     ephemeris.DefaultHorizonsURL,
		HorizonsTimeout: 30 * time.Second,
	}, logger)
	if err != nil {
		fmt.Println("ERROR creating engine:", err)
		os.Exit(1)
	}
	if err := engine.Ready(); err != nil {
		fmt.Println("WARNING engine not ready:", err)
	}

	calc, err := vedic.NewCalculator(engine, nil, logger)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}

	jd, err := timescale.ToJulianDay(*date, *clock, *tz)
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}
	fmt.Printf("Engine: %s\n", engine.Name())
	fmt.Printf("Julian Day (UT): %.6f\n", jd)
	fmt.Printf("Ayanamsa (%s): %.4f°\n", sm, sm.Ayanamsa(jd))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	start := time.Now()
	rs, err := calc.Calculate(ctx, vedic.Input{Date: *date, Time: *clock, TimezoneOffset: *tz})
	if err != nil {
		fmt.Println("ERROR:", err)
		os.Exit(1)
	}

	for _, name := range rs.Names() {
		p, _ := rs.Get(name)
		if p.Failed() {
			fmt.Printf("  %-8s ERROR %s\n", name, p.Err)
			continue
		}
		fmt.Printf("  %-8s %10.4f°  %-22s %s pada %d\n",
			name, p.Longitude, p.Rashi.SignName, p.Nakshatra.Name, p.Pada)
	}
	fmt.Printf("\nComputed in %v\n\n", time.Since(start).Round(time.Millisecond))

	out, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		fmt.Println("ERROR encoding:", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
