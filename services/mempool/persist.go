// Copyright (c) 2017-2018 The qitmeer developers

package mempool

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Qitmeer/vrx/core/serialization"
	"github.com/Qitmeer/vrx/core/types"
)

const (
	MempoolFileName = "mempool.dat"
	MempoolVersion  = 0x01
)

// Save writes the pool to the data directory and returns the number of
// transactions written.
func (mp *TxPool) Save() (int, error) {
	txds := mp.TxDescs()
	if len(txds) == 0 {
		log.Info("There are no transactions to save in mempool.")
		return 0, nil
	}
	outFilePath := filepath.Join(mp.cfg.DataDir, MempoolFileName)
	outFile, err := os.OpenFile(outFilePath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}
	defer outFile.Close()

	w := bufio.NewWriter(outFile)
	err = serialization.WriteElements(w, uint8(MempoolVersion), uint32(len(txds)))
	if err != nil {
		return 0, err
	}
	for _, txd := range txds {
		if err := serialization.WriteElements(w, txd.Added.Unix()); err != nil {
			return 0, err
		}
		if err := txd.Tx.Transaction().Serialize(w); err != nil {
			return 0, err
		}
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}
	log.Info("Saved mempool", "txs", len(txds), "path", outFilePath)
	return len(txds), nil
}

// Load reads a pool saved by Save back through the acceptance rules and
// removes the file.  Transactions older than the configured expiry are
// dropped.
func (mp *TxPool) Load() error {
	if !mp.cfg.Persist {
		return nil
	}
	inFilePath := filepath.Join(mp.cfg.DataDir, MempoolFileName)
	inFile, err := os.Open(inFilePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer os.Remove(inFilePath)
	defer inFile.Close()

	r := bufio.NewReader(inFile)
	var version uint8
	var txNum uint32
	if err := serialization.ReadElements(r, &version, &txNum); err != nil {
		return err
	}
	if version != MempoolVersion {
		return fmt.Errorf("the version(%d) of the file does not match %d",
			version, MempoolVersion)
	}

	added := 0
	allowOrphans := mp.cfg.Policy.MaxOrphanTxs > 0
	for i := uint32(0); i < txNum; i++ {
		var addedUnix int64
		if err := serialization.ReadElements(r, &addedUnix); err != nil {
			return fmt.Errorf("mempool load error at tx %d: %v", i, err)
		}
		var msgTx types.Transaction
		if err := msgTx.Deserialize(r); err != nil {
			return fmt.Errorf("mempool load error at tx %d: %v", i, err)
		}
		if time.Since(time.Unix(addedUnix, 0)) > mp.cfg.Expiry {
			log.Debug("Skipping expired transaction", "tx", msgTx.TxHash())
			continue
		}

		acceptedTxs, err := mp.ProcessTransaction(types.NewTx(&msgTx), allowOrphans,
			false, false)
		if err != nil {
			log.Debug("Dropped saved transaction", "tx", msgTx.TxHash(), "err", err)
			continue
		}
		added += len(acceptedTxs)
	}
	log.Info("Loaded mempool", "txs", added, "saved", txNum)
	return nil
}
