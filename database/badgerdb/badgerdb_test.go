package badgerdb

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/Qitmeer/vrx/database"
	"github.com/Qitmeer/vrx/database/dbtest"
	"github.com/stretchr/testify/require"
)

func TestBadger(t *testing.T) {
	dir, err := ioutil.TempDir("", "badger")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	db, err := database.Open(DbType, dir)
	require.NoError(t, err)
	defer db.Close()
	require.Equal(t, DbType, db.Type())
	dbtest.TestInterface(t, db)
}
