//go:build !sqlite_fts5

package search

func newDefaultEngine() (Engine, error) {
	return NewBleveEngine()
}
