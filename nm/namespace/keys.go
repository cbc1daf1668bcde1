package namespace

// Key namespace design: prefixed keys keep folders, files, and SS records
// in distinct scan ranges within one badger instance.
//
// Prefix   Key format          Value
// ------   ------------------  -----
// "f:"     f:<folder>/<name>   FileRecord (JSON)
// "d:"     d:<path>            Folder (JSON)
// "s:"     s:<id>              persisted SSRecord (JSON, sans Files set)
const (
	prefixFolder = "d:"
	prefixFile   = "f:"
	prefixSS     = "s:"
)

func folderKey(path string) []byte { return []byte(prefixFolder + path) }
func fileRecKey(key string) []byte { return []byte(prefixFile + key) }
func ssKey(id string) []byte       { return []byte(prefixSS + id) }

// persistedSS is the on-disk projection of SSRecord: the live Files set
// is rebuilt from registration/reconciliation on every process start, so
// it is not persisted.
type persistedSS struct {
	ID   string `json:"id"`
	Addr string `json:"addr"`
}
