package certification

import "errors"

var (
	ErrPlantNotFound       = errors.New("Plant not found")
	ErrCertificateNotFound = errors.New("Certificate not found")
)
