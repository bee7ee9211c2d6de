// One download attempt: fetch, validate, stream to a temp file, atomically
// rename into place. The destination path never holds partial content; on
// any failure the temp file is removed and a pre-existing completed download
// is left untouched.

package downloader

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// runTask performs a single transfer. It returns nil on success and a
// classified *DownloadError otherwise.
func (c *Coordinator) runTask(t *task) *DownloadError {
	ctx, cancel := context.WithTimeout(t.ctx, transferTimeout)
	defer cancel()

	dest := t.model.DestinationPath
	tmp := dest + ".tmp"

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return newError(KindFilesystem, "could not create podcast directory", err)
	}

	// A temp file from a previous attempt (crash, shutdown) enables a
	// range resume.
	var offset int64
	if info, err := os.Stat(tmp); err == nil && info.Size() > 0 {
		offset = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.model.SourceURL, nil)
	if err != nil {
		return newError(KindNetwork, "invalid source URL", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		removeTemp(tmp)
		return c.classifyTransportError(t, err)
	}
	defer resp.Body.Close()

	// Validate before trusting the body. A 200 with an HTML payload is a
	// server error page; writing it out would corrupt the episode file.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		removeTemp(tmp)
		return newError(KindHTTPStatus, fmt.Sprintf("server returned %s", resp.Status), nil)
	}
	if ct := resp.Header.Get("Content-Type"); !acceptableContentType(ct) {
		removeTemp(tmp)
		return newError(KindContentType, fmt.Sprintf("expected audio, got %q", ct), nil)
	}

	// Only a 206 honors the range; a 200 carries the whole file, so the
	// partial temp must be discarded rather than spliced onto.
	appendMode := false
	if offset > 0 {
		if resp.StatusCode == http.StatusPartialContent {
			appendMode = true
		} else {
			offset = 0
		}
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if appendMode {
		flags = os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(tmp, flags, 0644)
	if err != nil {
		return newError(KindFilesystem, "could not open temp file", err)
	}

	total := int64(-1)
	if resp.ContentLength >= 0 {
		total = offset + resp.ContentLength
	}

	written, dlErr := c.streamBody(ctx, t, f, resp.Body, offset, total)
	closeErr := f.Close()
	if dlErr != nil {
		removeTemp(tmp)
		return dlErr
	}
	if closeErr != nil {
		removeTemp(tmp)
		return newError(KindFilesystem, "could not finalize temp file", closeErr)
	}

	// The file only appears under its final name via this rename.
	if err := os.Rename(tmp, dest); err != nil {
		removeTemp(tmp)
		return newError(KindFilesystem, "could not move download into place", err)
	}

	if err := c.markDownloaded(t, dest, written); err != nil {
		return newError(KindFilesystem, "could not record download", err)
	}
	return nil
}

// streamBody copies the response body to the temp file in fixed chunks,
// checking for cancellation between chunks and forwarding throttled progress
// snapshots. It returns the final size of the temp file.
func (c *Coordinator) streamBody(ctx context.Context, t *task, f *os.File, body io.Reader, offset, total int64) (int64, *DownloadError) {
	buf := make([]byte, chunkSize)
	written := offset
	lastReport := time.Time{}

	for {
		select {
		case <-ctx.Done():
			return written, c.cancellationError(t, ctx)
		default:
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := f.Write(buf[:n]); err != nil {
				return written, newError(KindFilesystem, "could not write chunk", err)
			}
			written += int64(n)
			if time.Since(lastReport) >= progressInterval {
				c.progress(t, written, total)
				lastReport = time.Now()
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			select {
			case <-ctx.Done():
				return written, c.cancellationError(t, ctx)
			default:
			}
			return written, newError(KindNetwork, "transfer interrupted", readErr)
		}
	}

	if total >= 0 && written < total {
		return written, newError(KindNetwork,
			fmt.Sprintf("short body: got %d of %d bytes", written, total), nil)
	}
	c.progress(t, written, total)
	return written, nil
}

// markDownloaded flips the episode's flag in storage once the file is in
// place under its final name.
func (c *Coordinator) markDownloaded(t *task, dest string, size int64) error {
	ep, err := c.store.GetEpisode(t.model.EpisodeID)
	if err != nil {
		return err
	}
	now := time.Now()
	ep.Downloaded = true
	ep.DownloadPath = dest
	ep.DownloadSize = size
	ep.DownloadedAt = &now
	return c.store.SaveEpisode(ep)
}

// cancellationError distinguishes a user cancel from an expired transfer
// budget: the former is Cancelled, the latter a network failure.
func (c *Coordinator) cancellationError(t *task, ctx context.Context) *DownloadError {
	if t.ctx.Err() != nil {
		return newError(KindCancelled, "download cancelled", t.ctx.Err())
	}
	return newError(KindNetwork, "transfer budget exceeded", ctx.Err())
}

func (c *Coordinator) classifyTransportError(t *task, err error) *DownloadError {
	if t.ctx.Err() != nil {
		return newError(KindCancelled, "download cancelled", t.ctx.Err())
	}
	return newError(KindNetwork, "request failed", err)
}

// acceptableContentType accepts audio and the generic binary types podcast
// CDNs use, plus missing or unparseable headers. Markup, including +xml
// structured types like RSS and Atom, means the server answered with a feed
// or error page regardless of its status code.
func acceptableContentType(header string) bool {
	if header == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return true
	}
	mt = strings.ToLower(mt)
	switch {
	case strings.HasPrefix(mt, "audio/"), strings.HasPrefix(mt, "video/"):
		return true
	case mt == "application/octet-stream", mt == "binary/octet-stream":
		return true
	case strings.Contains(mt, "html"), mt == "text/xml", mt == "application/xml",
		strings.HasSuffix(mt, "+xml"):
		return false
	case strings.HasPrefix(mt, "text/"):
		return false
	}
	return true
}

// removeTemp is best-effort; a leftover temp file is truncated by the next
// attempt anyway.
func removeTemp(tmp string) {
	os.Remove(tmp)
}
