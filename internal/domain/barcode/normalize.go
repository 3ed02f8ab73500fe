// Package barcode normaliza la lectura cruda de un escáner o teclado antes de buscarla en el catálogo.
package barcode

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/width"

	"github.com/jhoicas/labstock/internal/domain"
)

// MaxLength longitud máxima (en runas) aceptada para un código.
const MaxLength = 64

// Normalize limpia el código leído: pliega caracteres de ancho completo (algunos escáneres
// en modo teclado con IME los emiten), recorta espacios y caracteres de control de la trama
// del escáner (STX/ETX, CR/LF, TAB). Devuelve ErrInvalidBarcode si el resultado queda vacío,
// es demasiado largo o contiene espacios/controles internos.
func Normalize(raw string) (string, error) {
	code := width.Narrow.String(raw)
	code = strings.TrimFunc(code, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	})
	if code == "" || utf8.RuneCountInString(code) > MaxLength {
		return "", domain.ErrInvalidBarcode
	}
	for _, r := range code {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return "", domain.ErrInvalidBarcode
		}
	}
	return code, nil
}
