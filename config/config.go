// Copyright (c) 2017-2018 The qitmeer developers

package config

type Config struct {
	HomeDir            string  `short:"A" long:"appdata" description:"Path to application home directory"`
	ShowVersion        bool    `short:"V" long:"version" description:"Display version information and exit"`
	ConfigFile         string  `short:"C" long:"configfile" description:"Path to configuration file"`
	DataDir            string  `short:"b" long:"datadir" description:"Directory to store data"`
	LogDir             string  `long:"logdir" description:"Directory to log output."`
	NoFileLogging      bool    `long:"nofilelogging" description:"Disable file logging."`
	DebugLevel         string  `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, crit}"`
	DbType             string  `long:"dbtype" description:"Database backend to use for the Block Chain {leveldb, badger, bbolt, memdb}"`
	TestNet            bool    `long:"testnet" description:"Use the test network"`
	PrivNet            bool    `long:"privnet" description:"Use the private network"`
	DisableCheckpoints bool    `long:"nocheckpoints" description:"Disable built-in checkpoints.  Don't do this unless you know what you're doing."`
	MaxOrphanBlocks    int     `long:"maxorphanblocks" description:"Max number of orphan blocks to keep in memory"`
	ImportFile         string  `long:"importfile" description:"Import length-prefixed serialized blocks from the specified file before starting"`
	Metrics            bool    `long:"metrics" description:"Enable metrics collection"`
	BanScore           int     `long:"banscore" description:"Misbehavior score at which a peer is banned"`
	// MemPool Config
	FreeTxRelayLimit   float64 `long:"limitfreerelay" description:"Limit relay of transactions with no transaction fee to the given amount in thousands of bytes per minute"`
	MinRelayTxFee      int64   `long:"minrelaytxfee" description:"The minimum transaction fee in atoms/kB to be considered a non-zero fee"`
	RejectInsaneFee    bool    `long:"rejectinsanefee" description:"Reject transactions paying more than 10000 times the minimum relay fee"`
	AcceptNonStd       bool    `long:"acceptnonstd" description:"Accept and relay non-standard transactions to the network regardless of the default settings for the active network."`
	MaxOrphanTxs       int     `long:"maxorphantx" description:"Max number of orphan transactions to keep in memory"`
	PersistMempool     bool    `long:"persistmempool" description:"Save the mempool on shutdown and load it on start"`
}
