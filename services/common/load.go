// Copyright (c) 2017-2018 The qitmeer developers
// Copyright (c) 2015-2016 The Decred developers
// Copyright (c) 2013-2016 The btcsuite developers

package common

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/Qitmeer/vrx/config"
	"github.com/Qitmeer/vrx/core/blockchain"
	"github.com/Qitmeer/vrx/database"
	"github.com/Qitmeer/vrx/log"
	"github.com/Qitmeer/vrx/params"
	"github.com/Qitmeer/vrx/services/blkmgr"
	"github.com/Qitmeer/vrx/services/mempool"
	"github.com/Qitmeer/vrx/version"
	"github.com/btcsuite/btcutil"
	"github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "vrxd.conf"
	defaultDataDirname    = "data"
	defaultLogLevel       = "info"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "vrxd.log"
	defaultDbType         = "leveldb"
)

var (
	defaultHomeDir    = btcutil.AppDataDir("vrxd", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultDataDir    = filepath.Join(defaultHomeDir, defaultDataDirname)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() config.Config {
	return config.Config{
		HomeDir:          defaultHomeDir,
		ConfigFile:       defaultConfigFile,
		DebugLevel:       defaultLogLevel,
		DataDir:          defaultDataDir,
		LogDir:           defaultLogDir,
		DbType:           defaultDbType,
		MaxOrphanBlocks:  blockchain.DefaultMaxOrphanBlocks,
		BanScore:         blkmgr.DefaultBanScore,
		FreeTxRelayLimit: mempool.DefaultFreeTxRelayLimit,
		MinRelayTxFee:    int64(mempool.DefaultMinRelayTxFee),
		RejectInsaneFee:  true,
		MaxOrphanTxs:     mempool.DefaultMaxOrphanTxs,
	}
}

// LoadConfig initializes and parses the config using a config file and command
// line options.
func LoadConfig() (*config.Config, []string, error) {
	cfg := DefaultConfig()

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		} else if ok && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
	}
	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s)\n", appName, version.String(), runtime.Version())
		os.Exit(0)
	}

	usageMessage := fmt.Sprintf("Use %s -h to show usage", appName)

	// Update the home directory if specified. Since the home directory is
	// updated, other variables need to be updated to reflect the new
	// changes.
	if preCfg.HomeDir != "" {
		cfg.HomeDir, _ = filepath.Abs(preCfg.HomeDir)

		if preCfg.ConfigFile == defaultConfigFile {
			preCfg.ConfigFile = filepath.Join(cfg.HomeDir, defaultConfigFilename)
		}
		cfg.ConfigFile = preCfg.ConfigFile
		if preCfg.DataDir == defaultDataDir {
			cfg.DataDir = filepath.Join(cfg.HomeDir, defaultDataDirname)
		} else {
			cfg.DataDir = preCfg.DataDir
		}
		if preCfg.LogDir == defaultLogDir {
			cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
		} else {
			cfg.LogDir = preCfg.LogDir
		}
	}

	// Load additional config from file.
	var configFileError error
	parser := newConfigParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(preCfg.ConfigFile)
	if err != nil {
		if _, ok := err.(*os.PathError); !ok {
			fmt.Fprintf(os.Stderr, "Error parsing config file: %v\n", err)
			fmt.Fprintln(os.Stderr, usageMessage)
			return nil, nil, err
		}
		configFileError = err
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			fmt.Fprintln(os.Stderr, usageMessage)
		}
		return nil, nil, err
	}

	// Create the home directory if it doesn't already exist.
	funcName := "loadConfig"
	err = os.MkdirAll(cfg.HomeDir, 0700)
	if err != nil {
		// Show a nicer error message if it's because a symlink is
		// linked to a directory that does not exist (probably because
		// it's not mounted).
		if e, ok := err.(*os.PathError); ok && os.IsExist(err) {
			if link, lerr := os.Readlink(e.Path); lerr == nil {
				str := "is symlink %s -> %s mounted?"
				err = fmt.Errorf(str, e.Path, link)
			}
		}
		str := "%s: failed to create home directory: %v"
		err := fmt.Errorf(str, funcName, err)
		fmt.Fprintln(os.Stderr, err)
		return nil, nil, err
	}

	// assign active network params while we're at it
	netParams, err := SelectNetParams(&cfg)
	if err != nil {
		err := fmt.Errorf("%s: %v", funcName, err)
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}
	params.ActiveNetParams = netParams

	if err := validateConfig(&cfg); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err)
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	// Append the network type to the data directory so it is "namespaced"
	// per network.  All data is specific to a network, so namespacing the
	// data directory means each individual piece of serialized data does
	// not have to worry about changing names per network and such.
	cfg.DataDir = cleanAndExpandPath(cfg.DataDir)
	cfg.DataDir = filepath.Join(cfg.DataDir, netParams.Name)

	// Set logging file if presented
	if !cfg.NoFileLogging {
		// Append the network type to the log directory so it is "namespaced"
		// per network in the same fashion as the data directory.
		cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
		cfg.LogDir = filepath.Join(cfg.LogDir, netParams.Name)

		// Initialize log rotation.  After log rotation has been initialized, the
		// logger variables may be used.
		log.InitLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename))
	}

	// Parse, validate, and set debug log level(s).
	if err := ParseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		err := fmt.Errorf("%s: %v", funcName, err.Error())
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, usageMessage)
		return nil, nil, err
	}

	// Warn about missing config file only after all other configuration is
	// done.  This prevents the warning on help messages and invalid
	// options.  Note this should go directly before the return.
	if configFileError != nil {
		log.Warn("missing config file", "error", configFileError)
	}

	return &cfg, remainingArgs, nil
}

// SelectNetParams returns the network the configuration asks for.
func SelectNetParams(cfg *config.Config) (*params.Params, error) {
	netParams := &params.MainNetParams
	numNets := 0
	if cfg.TestNet {
		numNets++
		netParams = &params.TestNetParams
	}
	if cfg.PrivNet {
		numNets++
		netParams = &params.PrivNetParams
	}
	// Multiple networks can't be selected simultaneously.
	if numNets > 1 {
		return nil, fmt.Errorf("the testnet and privnet params can't be " +
			"used together -- choose one of the two")
	}
	return netParams, nil
}

// validateConfig checks the option values that have a bounded range.
func validateConfig(cfg *config.Config) error {
	if !isSupportedDbType(cfg.DbType) {
		return fmt.Errorf("the specified database type [%v] is invalid -- "+
			"supported types %v", cfg.DbType, database.SupportedDrivers())
	}
	if cfg.BanScore <= 0 {
		return fmt.Errorf("the banscore option must be positive -- parsed [%d]",
			cfg.BanScore)
	}
	if cfg.MaxOrphanBlocks < 0 {
		return fmt.Errorf("the maxorphanblocks option may not be less than 0 "+
			"-- parsed [%d]", cfg.MaxOrphanBlocks)
	}
	if cfg.MaxOrphanTxs < 0 {
		return fmt.Errorf("the maxorphantx option may not be less than 0 "+
			"-- parsed [%d]", cfg.MaxOrphanTxs)
	}
	if cfg.MinRelayTxFee < 0 {
		return fmt.Errorf("the minrelaytxfee option may not be less than 0 "+
			"-- parsed [%d]", cfg.MinRelayTxFee)
	}
	if cfg.FreeTxRelayLimit < 0 {
		return fmt.Errorf("the limitfreerelay option may not be less than 0 "+
			"-- parsed [%v]", cfg.FreeTxRelayLimit)
	}
	return nil
}

// isSupportedDbType returns whether or not the passed database type is
// currently supported.
func isSupportedDbType(dbType string) bool {
	for _, driverType := range database.SupportedDrivers() {
		if dbType == driverType {
			return true
		}
	}
	return false
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config.Config, options flags.Options) *flags.Parser {
	parser := flags.NewParser(cfg, options)
	return parser
}

// ParseAndSetDebugLevels attempts to parse the specified debug level and set
// the levels accordingly.  An appropriate error is returned if anything is
// invalid.
func ParseAndSetDebugLevels(debugLevel string) error {
	lvl, err := log.LvlFromString(debugLevel)
	if err != nil {
		str := "the specified debug level [%v] is invalid"
		return fmt.Errorf(str, debugLevel)
	}
	// Change the logging level for all subsystems.
	log.Glogger().Verbosity(lvl)
	return nil
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}
		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
