package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBackend    = "backend"
	KeyPreferred  = "preferred_backend"
	KeyMode       = "mode"
	KeyPath       = "path"
	KeyBucket     = "bucket"
	KeyKey        = "key"
	KeyRevision   = "revision"
	KeyReason     = "reason"
	KeyBytes      = "bytes"
	KeyCategory   = "category"
	KeyMethod     = "method"
	KeyStatus     = "status"
	KeyRemoteAddr = "remote_addr"
	KeyUserAgent  = "user_agent"
	KeyDurationMS = "duration_ms"
	KeyAdminLobs  = "admin_lobs"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Backend(name string) slog.Attr     { return slog.String(KeyBackend, name) }
func Preferred(name string) slog.Attr   { return slog.String(KeyPreferred, name) }
func Mode(m string) slog.Attr           { return slog.String(KeyMode, m) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Bucket(b string) slog.Attr         { return slog.String(KeyBucket, b) }
func Key(k string) slog.Attr            { return slog.String(KeyKey, k) }
func Revision(id string) slog.Attr      { return slog.String(KeyRevision, id) }
func Reason(r string) slog.Attr         { return slog.String(KeyReason, r) }
func Bytes(n int) slog.Attr             { return slog.Int(KeyBytes, n) }
func Category(c string) slog.Attr       { return slog.String(KeyCategory, c) }
func Method(m string) slog.Attr         { return slog.String(KeyMethod, m) }
func Status(code int) slog.Attr         { return slog.Int(KeyStatus, code) }
func RemoteAddr(addr string) slog.Attr  { return slog.String(KeyRemoteAddr, addr) }
func UserAgent(ua string) slog.Attr     { return slog.String(KeyUserAgent, ua) }
func Duration(d time.Duration) slog.Attr {
	return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000)
}

// AdminLobs renders the Admin lob counter; missing values log as "N/A".
func AdminLobs(v string) slog.Attr { return slog.String(KeyAdminLobs, v) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
