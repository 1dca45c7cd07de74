// Package statsview serves live Go runtime statistics (heap, goroutines, GC
// pauses) over HTTP while a long run or batch is in progress.
package statsview

import (
	"fmt"
	"io"

	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Address is the default listen address.
const Address = "localhost:12600"

const url = "/debug/statsview"

// Launch starts the stats server in the background on addr (Address when
// empty) and reports where it can be reached. The server lives until the
// process exits.
func Launch(output io.Writer, addr string) {
	if addr == "" {
		addr = Address
	}
	viewer.SetConfiguration(viewer.WithAddr(addr))
	go func() {
		mgr := statsview.New()
		mgr.Start()
	}()

	fmt.Fprintf(output, "stats server available at http://%s%s\n", addr, url)
}
