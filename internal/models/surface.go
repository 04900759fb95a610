package models

// PageSurface describes the currently rendered page raster.
type PageSurface struct {
	PageIndex int     `json:"page_index"`
	WidthPx   int     `json:"width"`
	HeightPx  int     `json:"height"`
	Scale     float64 `json:"scale"`
}

// FocusRect is a pixel rectangle inside the page raster.
type FocusRect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RegionSize is the fixed size of the focus region in pixels.
type RegionSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// PageRequest is the body of POST /api/v1/page.
type PageRequest struct {
	PageIndex int     `json:"page_index" binding:"min=0"`
	Scale     float64 `json:"scale" binding:"omitempty,gt=0,lte=8"`
}
