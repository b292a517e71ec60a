package usecase

// AppendCapture is exported for testing
var AppendCapture = appendCapture

// Reason is exported for testing
var Reason = reason
