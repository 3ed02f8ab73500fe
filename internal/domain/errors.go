package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrItemNotFound       = errors.New("artículo no encontrado")
	ErrAlertNotFound      = errors.New("alerta no encontrada")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrInvalidQuantity    = fmt.Errorf("%w: la cantidad debe ser un entero positivo", ErrInvalidInput)
	ErrInvalidBarcode     = fmt.Errorf("%w: código de barras mal formado", ErrInvalidInput)
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrStorageUnavailable = errors.New("almacenamiento no disponible temporalmente")
)
