package statestore

import (
	"bytes"
)

// Selection is the storage configuration needed to build openers.
type Selection struct {
	Kind Kind
	// Credentials is the raw remote credential blob. In auto mode a
	// non-empty blob selects the remote backend.
	Credentials []byte
	File        FileConfig
	Remote      RemoteConfig
	Bolt        BoltConfig
}

// Preferred resolves KindAuto to a concrete backend kind.
func (s Selection) Preferred() Kind {
	if s.Kind != KindAuto && s.Kind != "" {
		return s.Kind
	}
	if len(bytes.TrimSpace(s.Credentials)) > 0 {
		return KindRemote
	}
	return KindFile
}

// Openers returns the preferred opener and the fallback opener. The
// fallback is always the file backend, except when the file backend is
// itself preferred or memory was requested; then fallback is nil and the
// caller drops straight to memory.
func Openers(s Selection) (primary, fallback Opener) {
	fileOpener := OpenFile(s.File)

	switch s.Preferred() {
	case KindRemote:
		return OpenRemoteOpener(s.Credentials, s.Remote), fileOpener
	case KindBolt:
		return OpenBoltOpener(s.Bolt), fileOpener
	case KindMemory:
		return OpenMemory(NewMemoryBackend()), nil
	default:
		return fileOpener, nil
	}
}
