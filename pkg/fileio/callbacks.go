package fileio

// Callbacks is the full callback table of a [File]. Nil entries leave the
// corresponding operation unregistered.
type Callbacks struct {
	Open     OpenFunc
	Close    CloseFunc
	Read     ReadFunc
	Write    WriteFunc
	Seek     SeekFunc
	Truncate TruncateFunc
}

// OpenCallbacks registers every callback in cbs plus data on f, then opens f.
//
// All steps run even if an earlier one fails. The returned error is the most
// severe of all results; among equally severe errors the first one wins.
func OpenCallbacks(f *File, cbs Callbacks, data any) error {
	results := [...]error{
		f.SetOpenCallback(cbs.Open),
		f.SetCloseCallback(cbs.Close),
		f.SetReadCallback(cbs.Read),
		f.SetWriteCallback(cbs.Write),
		f.SetSeekCallback(cbs.Seek),
		f.SetTruncateCallback(cbs.Truncate),
		f.SetCallbackData(data),
		f.Open(),
	}

	var worst error

	for _, err := range results {
		if StatusOf(err) < StatusOf(worst) {
			worst = err
		}
	}

	return worst
}
