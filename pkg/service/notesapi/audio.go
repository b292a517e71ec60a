package notesapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/m-mizutani/goerr/v2"
)

// MaxAudioSize bounds uploaded audio files
const MaxAudioSize = 100 << 20

// audio containers that mimetype reports under a non-audio top-level type
var audioContainers = []string{
	"video/webm",
	"application/ogg",
	"video/mp4",
	"video/x-ms-asf",
}

// DetectAudio returns the MIME type of data, or ErrNotAudio when it is not audio
func DetectAudio(data []byte) (string, error) {
	mtype := mimetype.Detect(data)
	for m := mtype; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "audio/") {
			return mtype.String(), nil
		}
	}
	for _, container := range audioContainers {
		if mtype.Is(container) {
			return mtype.String(), nil
		}
	}
	return "", goerr.Wrap(ErrNotAudio, "unsupported file type", goerr.V("mime_type", mtype.String()))
}

// Transcribe uploads an audio file as multipart field audio_file and returns its transcription
func (c *Client) Transcribe(ctx context.Context, filename string, audio []byte) (string, error) {
	contentType, err := DetectAudio(audio)
	if err != nil {
		return "", err
	}
	if filename == "" {
		filename = "recording"
		if m := mimetype.Lookup(contentType); m != nil {
			filename += m.Extension()
		}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="audio_file"; filename="`+escapeQuotes(filepath.Base(filename))+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", goerr.Wrap(err, "failed to create multipart part")
	}
	if _, err := part.Write(audio); err != nil {
		return "", goerr.Wrap(err, "failed to write audio to request")
	}
	if err := mw.Close(); err != nil {
		return "", goerr.Wrap(err, "failed to finish multipart body")
	}

	resp, err := c.do(ctx, http.MethodPost, c.routes.UploadAudio, nil, mw.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}
	if !resp.ok() {
		return "", resp.rejected()
	}

	var out transcribeResponse
	if err := decode(resp, &out); err != nil {
		return "", err
	}
	if out.Status == statusError {
		return "", resp.rejected()
	}
	return strings.TrimSpace(out.Transcription), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
