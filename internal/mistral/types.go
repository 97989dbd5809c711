package mistral

// Document types accepted by the OCR endpoint
const (
	DocumentTypeImageURL    = "image_url"
	DocumentTypeDocumentURL = "document_url"
)

// Document points the OCR call at its input: an inline data URL for images
// or a (signed) URL for documents.
type Document struct {
	Type        string `json:"type"`
	ImageURL    string `json:"image_url,omitempty"`
	DocumentURL string `json:"document_url,omitempty"`
}

// OCRRequest is the POST body for /v1/ocr
type OCRRequest struct {
	Model              string   `json:"model"`
	Document           Document `json:"document"`
	IncludeImageBase64 bool     `json:"include_image_base64"`
}

type PageDimensions struct {
	DPI    int `json:"dpi"`
	Height int `json:"height"`
	Width  int `json:"width"`
}

type PageImage struct {
	ID           string `json:"id"`
	TopLeftX     int    `json:"top_left_x"`
	TopLeftY     int    `json:"top_left_y"`
	BottomRightX int    `json:"bottom_right_x"`
	BottomRightY int    `json:"bottom_right_y"`
	ImageBase64  string `json:"image_base64,omitempty"`
}

// Page is one page of an OCR response
type Page struct {
	Index      int            `json:"index"`
	Markdown   string         `json:"markdown"`
	Images     []PageImage    `json:"images"`
	Dimensions PageDimensions `json:"dimensions"`
}

type UsageInfo struct {
	PagesProcessed int `json:"pages_processed"`
	DocSizeBytes   int `json:"doc_size_bytes,omitempty"`
}

// OCRResponse is the /v1/ocr response
type OCRResponse struct {
	Model     string    `json:"model"`
	Pages     []Page    `json:"pages"`
	UsageInfo UsageInfo `json:"usage_info"`
}

// File is the /v1/files upload response
type File struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Bytes     int64  `json:"bytes"`
	CreatedAt int64  `json:"created_at"`
	Filename  string `json:"filename"`
	Purpose   string `json:"purpose"`
}

type signedURLResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Message string `json:"message"`
	Detail  any    `json:"detail"`
	Error   struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}
