// Package main is the verdict command line: it validates blocks read from
// files against a utxo store and, with process, connects them to it.
//
// Usage:
//
//	verdict validate --height 201 --median-time-past 1700000000 block.hex
//	verdict process --tip tip-header.hex --tip-height 200 block201.hex block202.hex
//	verdict health
//	verdict settings
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/bsv-blockchain/verdict/errors"
	"github.com/bsv-blockchain/verdict/model"
	"github.com/bsv-blockchain/verdict/services/blockvalidation"
	"github.com/bsv-blockchain/verdict/settings"
	"github.com/bsv-blockchain/verdict/stores/pendingblocks"
	"github.com/bsv-blockchain/verdict/stores/utxo"
	"github.com/bsv-blockchain/verdict/stores/utxo/cache"
	"github.com/bsv-blockchain/verdict/stores/utxo/factory"
	"github.com/bsv-blockchain/verdict/ulogger"
	"github.com/ordishs/gocore"
	"github.com/urfave/cli/v2"
)

// set at build time
var (
	version = "dev"
	commit  = "none"
)

func main() {
	app := &cli.App{
		Name:    "verdict",
		Usage:   "Validate blocks against a utxo set",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "utxostore",
				Usage: "utxo store URL, overrides the utxostore setting",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Validate a block without changing the utxo store",
				ArgsUsage: "<block file>",
				Action:    validate,
				Flags: []cli.Flag{
					&cli.UintFlag{
						Name:     "height",
						Usage:    "height the block would be connected at",
						Required: true,
					},
					&cli.Int64Flag{
						Name:  "median-time-past",
						Usage: "median time past of the parent block",
					},
				},
			},
			{
				Name:      "process",
				Usage:     "Validate blocks and connect the valid ones to the utxo store",
				ArgsUsage: "<block file>...",
				Action:    process,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "tip",
						Usage:    "file holding the header of the block the store is at",
						Required: true,
					},
					&cli.UintFlag{
						Name:     "tip-height",
						Usage:    "height of the tip block",
						Required: true,
					},
				},
			},
			{
				Name:   "health",
				Usage:  "Check the utxo store",
				Action: health,
			},
			{
				Name:   "settings",
				Usage:  "Print the effective settings",
				Action: printSettings,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type engine struct {
	logger    ulogger.Logger
	settings  *settings.Settings
	store     utxo.Store
	master    *cache.MasterCache
	pool      *blockvalidation.WorkerPool
	validator *blockvalidation.BlockValidator
}

func newEngine(c *cli.Context) (*engine, error) {
	tSettings := settings.NewSettings()
	logger := ulogger.New("verdict", ulogger.WithLevel(tSettings.LogLevel), ulogger.WithPretty(tSettings.PrettyLogs))

	store, err := openStore(c, logger, tSettings)
	if err != nil {
		return nil, err
	}

	master := cache.NewMasterCache(tSettings.UtxoCache.MaxEntries, tSettings.UtxoCache.Shards)

	pool := blockvalidation.NewWorkerPool(logger, tSettings.Validation.MaxThreadCount)
	pool.Start()

	return &engine{
		logger:    logger,
		settings:  tSettings,
		store:     store,
		master:    master,
		pool:      pool,
		validator: blockvalidation.NewBlockValidator(logger, tSettings, store, master, pool, nil),
	}, nil
}

// openStore connects to the --utxostore URL, or the utxostore setting when
// the flag is not given.
func openStore(c *cli.Context, logger ulogger.Logger, tSettings *settings.Settings) (utxo.Store, error) {
	var storeURL *url.URL

	if s := c.String("utxostore"); s != "" {
		u, err := url.Parse(s)
		if err != nil {
			return nil, errors.NewConfigurationError("invalid utxostore URL %q", s, err)
		}

		storeURL = u
	}

	return factory.NewStore(c.Context, logger, tSettings, storeURL)
}

func (e *engine) Close() {
	e.pool.Close()

	if err := e.store.Close(); err != nil {
		e.logger.Errorf("failed to close utxo store: %v", err)
	}
}

func validate(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.NewInvalidArgumentError("validate takes exactly one block file")
	}

	block, err := readBlock(c.Args().First())
	if err != nil {
		return err
	}

	e, err := newEngine(c)
	if err != nil {
		return err
	}
	defer e.Close()

	chain := blockvalidation.ChainContext{
		//nolint:gosec // heights fit in uint32
		Height:         uint32(c.Uint("height")),
		PreviousHash:   block.Header.HashPrevBlock,
		MedianTimePast: c.Int64("median-time-past"),
	}

	result := e.validator.ValidateBlock(c.Context, block, chain)

	if err := printJSON(result); err != nil {
		return err
	}

	if result.Err != nil {
		return result.Err
	}

	if !result.IsValid {
		return cli.Exit("", 2)
	}

	return nil
}

func process(c *cli.Context) error {
	if c.NArg() == 0 {
		return errors.NewInvalidArgumentError("process needs at least one block file")
	}

	tipBytes, err := readHex(c.String("tip"))
	if err != nil {
		return err
	}

	tip, err := model.NewBlockHeaderFromBytes(tipBytes[:min(len(tipBytes), model.BlockHeaderSize)])
	if err != nil {
		return err
	}

	e, err := newEngine(c)
	if err != nil {
		return err
	}
	defer e.Close()

	processor, err := blockvalidation.NewBlockProcessor(e.logger, e.settings, e.store, e.master, e.validator, pendingblocks.New(e.logger, e.settings))
	if err != nil {
		return err
	}

	processor.Start()
	defer processor.Stop()

	//nolint:gosec // heights fit in uint32
	processor.SetTip(tip, uint32(c.Uint("tip-height")))

	for _, filename := range c.Args().Slice() {
		block, err := readBlock(filename)
		if err != nil {
			return err
		}

		processor.QueueBlock(block)
	}

	results, err := processor.ProcessPending(c.Context)

	for _, result := range results {
		if printErr := printJSON(result); printErr != nil {
			return printErr
		}
	}

	if err != nil {
		return err
	}

	hash, height := processor.Tip()
	e.logger.Infof("tip is %s at height %d", hash, height)

	return printJSON(processor.Statistics().Snapshot())
}

func health(c *cli.Context) error {
	tSettings := settings.NewSettings()
	logger := ulogger.New("verdict", ulogger.WithLevel(tSettings.LogLevel))

	store, err := openStore(c, logger, tSettings)
	if err != nil {
		return err
	}
	defer store.Close()

	status, details, err := store.Health(c.Context, false)
	fmt.Printf("%d %s\n", status, details)

	return err
}

func printSettings(_ *cli.Context) error {
	tSettings := settings.NewSettings()

	fmt.Printf("SETTINGS\n--------\n")

	if err := printJSON(tSettings); err != nil {
		return err
	}

	fmt.Printf("\nSTATS\n-----\n%s\nVERSION\n-------\n%s (%s)\n", gocore.Config().Stats(), version, commit)

	return nil
}

// readBlock reads a block stored either as raw bytes or as hex.
func readBlock(filename string) (*model.Block, error) {
	b, err := readHex(filename)
	if err != nil {
		return nil, err
	}

	return model.NewBlockFromBytes(b)
}

func readHex(filename string) ([]byte, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewProcessingError("could not read %s", filename, err)
	}

	trimmed := bytes.TrimSpace(b)
	if decoded, err := hex.DecodeString(string(trimmed)); err == nil {
		return decoded, nil
	}

	return b, nil
}

func printJSON(v interface{}) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}
