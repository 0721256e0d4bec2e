package boltdb

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/Qitmeer/vrx/database"
	"github.com/Qitmeer/vrx/database/dbtest"
	"github.com/stretchr/testify/require"
)

func TestBolt(t *testing.T) {
	dir, err := ioutil.TempDir("", "bolt")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	db, err := database.Open(DbType, filepath.Join(dir, "vrx.db"))
	require.NoError(t, err)
	defer db.Close()
	dbtest.TestInterface(t, db)
}
