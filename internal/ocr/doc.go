// Package ocr dispatches focus-region crops to a text-recognition engine.
//
// Engines are small and transport-agnostic: HTTPEngine talks to the OCR
// endpoint of the gaze backend, TesseractEngine (build tag "tesseract")
// recognises in-process. TriggerLoop runs recognition on a fixed period with
// at most one request in flight.
package ocr
