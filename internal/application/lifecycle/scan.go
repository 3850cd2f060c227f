package lifecycle

import (
	"strings"
	"sync"

	"github.com/JoseeGarciaa/kryotecsense-sub001/internal/domain"
)

// ScanSession acumula los códigos RFID leídos en una sesión de escaneo y
// rechaza las lecturas repetidas.
type ScanSession struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	codes []string
}

func NewScanSession() *ScanSession {
	return &ScanSession{seen: make(map[string]struct{})}
}

// Capture registra un código. Devuelve ErrDuplicateScan si ya se leyó en la sesión.
func (s *ScanSession) Capture(code string) error {
	code = NormalizeRFID(code)
	if code == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[code]; ok {
		return domain.ErrDuplicateScan
	}
	s.seen[code] = struct{}{}
	s.codes = append(s.codes, code)
	return nil
}

// Codes códigos capturados en orden de lectura.
func (s *ScanSession) Codes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.codes...)
}

func (s *ScanSession) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

// Reset vacía la sesión.
func (s *ScanSession) Reset() {
	s.mu.Lock()
	s.seen = make(map[string]struct{})
	s.codes = nil
	s.mu.Unlock()
}

// NormalizeRFID forma canónica de un código leído: sin espacios y en mayúsculas.
func NormalizeRFID(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
