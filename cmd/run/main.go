package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/fumin/qoptics"
	"github.com/fumin/qoptics/bloch"
	"github.com/fumin/qoptics/config"
	"github.com/fumin/qoptics/sesolve"
	"github.com/fumin/qoptics/store"
)

const (
	fnameRabi  = "rabi.csv"
	fnameBloch = "bloch.csv"
	fnameDone  = "done.txt"
)

var (
	runDir   = flag.String("d", "", "run directory, defaults to QOPTICS_RUN_DIR")
	omega    = flag.Float64("omega", 1, "Rabi frequency")
	detuning = flag.Float64("detuning", 0, "detuning from resonance")
	points   = flag.Int("n", 500, "number of time points")
	periods  = flag.Float64("periods", 1, "duration in units of 2pi/omega")
	method   = flag.String("method", sesolve.DormandPrince.String(), "integration method, dopri5 or spectral")
)

func writeFile(fpath string, write func(io.Writer) error) error {
	f, err := os.Create(fpath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	err = write(f)
	if err1 := f.Close(); err1 != nil && err == nil {
		err = errors.Wrap(err1, "")
	}
	return err
}

// solve runs the Rabi experiment into dir, skipping it if dir already holds a finished run.
func solve(dir string, cfg qoptics.RabiConfig, sphere *bloch.Sphere) (*sesolve.Result, error) {
	donePath := filepath.Join(dir, fnameDone)
	if _, err := os.Stat(donePath); err == nil {
		return nil, nil
	}
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, errors.Wrap(err, "")
	}

	res, err := qoptics.Rabi(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if err := writeFile(filepath.Join(dir, fnameRabi), func(w io.Writer) error { return res.WriteCSV(w, qoptics.RabiLabels...) }); err != nil {
		return nil, errors.Wrap(err, "")
	}

	// The trajectory of the atom on the Bloch sphere.
	for _, psi := range res.States() {
		psi, err := psi.Unit()
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		c, err := bloch.ToCoordinates(psi)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		if err := sphere.AddPoints(c); err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	if err := writeFile(filepath.Join(dir, fnameBloch), sphere.WriteCSV); err != nil {
		return nil, errors.Wrap(err, "")
	}

	if err := os.WriteFile(donePath, nil, 0644); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return res, nil
}

func main() {
	flag.Parse()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
	log := cfg.NewLogger(os.Stderr)

	if err := mainWithErr(cfg, log); err != nil {
		log.Fatal().Msgf("%+v", err)
	}
}

func mainWithErr(cfg *config.Config, log zerolog.Logger) error {
	if *runDir == "" {
		*runDir = cfg.RunDir
	}
	m, err := sesolve.ParseMethod(*method)
	if err != nil {
		return errors.Wrap(err, "")
	}

	var sphere bloch.Sphere
	if err := qoptics.Tour(os.Stdout, &sphere); err != nil {
		return errors.Wrap(err, "")
	}

	rabi := qoptics.NewRabiConfig(*omega)
	rabi.Detuning = *detuning
	rabi.Points = *points
	rabi.Periods = *periods
	rabi.Options = rabi.Options.Method(m).StoreStates(true).Logger(log)
	dir := filepath.Join(*runDir, fmt.Sprintf("%f", *omega), fmt.Sprintf("%f", *detuning))
	res, err := solve(dir, rabi, &sphere)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("%f %f", *omega, *detuning))
	}
	if res == nil {
		log.Info().Str("dir", dir).Msg("already solved")
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), os.ModePerm); err != nil {
		return errors.Wrap(err, "")
	}
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer db.Close()
	run := &store.Run{
		Name:   "rabi",
		Params: map[string]float64{"omega": *omega, "detuning": *detuning, "periods": *periods},
		Labels: qoptics.RabiLabels,
		Result: res,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.SaveRun(ctx, run); err != nil {
		return errors.Wrap(err, "")
	}
	log.Info().Str("id", run.ID).Str("dir", dir).Int("steps", res.Steps()).Msg("saved run")

	fmt.Printf("t,%s,%s\n", qoptics.RabiLabels[0], qoptics.RabiLabels[1])
	stride := max(1, res.Len()/10)
	for i, t := range res.Times() {
		if i%stride != 0 && i != res.Len()-1 {
			continue
		}
		row := res.Row(i)
		fmt.Printf("%f,%f,%f\n", t, row[0], row[1])
	}
	return nil
}
