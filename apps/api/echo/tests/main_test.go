package tests

import (
	"os"
	"testing"

	"github.com/trezcool/darasa/core"
)

func TestMain(m *testing.M) {
	// error responses must keep their production shape
	core.Conf.Debug = false
	core.Conf.TestMode = true

	os.Exit(m.Run())
}
