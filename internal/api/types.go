// Package api はHTTP APIのスキーマとレスポンス型を定義する
//
// フィールド名とメッセージは既存クライアントとの互換性のため変更しない。
package api

// クライアント向けエラーメッセージ
const (
	MsgCameraNotInitialized = "Cámara no inicializada"
	MsgCaptureFailed        = "Error capturando imagen"
	MsgEncodeFailed         = "Error convirtiendo imagen"
	MsgSaveFailed           = "Error guardando archivo"
	MsgStorageUnavailable   = "SD no disponible"
	MsgDirUnreadable        = "No se puede acceder a la carpeta"
	MsgFileNotSpecified     = "Archivo no especificado"
	MsgFileNotFound         = "Archivo no encontrado"
	MsgDeleteFailed         = "Error eliminando archivo"
)

// CaptureResponse は /capture の成功レスポンス
type CaptureResponse struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
}

// ErrorResponse は /capture と /delete の失敗レスポンス
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// DeleteResponse は /delete の成功レスポンス
type DeleteResponse struct {
	Success bool `json:"success"`
}

// ListResponse は /list の成功レスポンス
type ListResponse struct {
	Files []string `json:"files"`
}

// ListErrorResponse は /list の失敗レスポンス
type ListErrorResponse struct {
	Error string `json:"error"`
}

// InfoResponse は /info のレスポンス
type InfoResponse struct {
	Inicializada    bool    `json:"inicializada"`
	SdDisponible    bool    `json:"sd_disponible"`
	Formato         string  `json:"formato"`
	Resolucion      string  `json:"resolucion"`
	MemoriaLibre    uint64  `json:"memoria_libre"`
	PsramDisponible bool    `json:"psram_disponible"`
	UltimaFoto      *string `json:"ultima_foto,omitempty"`
	BootId          string  `json:"boot_id"`
	UptimeMs        int64   `json:"uptime_ms"`
}

// NewErrorResponse は失敗レスポンスを作成する
func NewErrorResponse(msg string) ErrorResponse {
	return ErrorResponse{Success: false, Error: msg}
}
