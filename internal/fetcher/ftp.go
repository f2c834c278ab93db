package fetcher

import (
	"context"
	"io"
	"net"
	"net/textproto"
	"net/url"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/geowerk/tilefetch/internal/resilience"
)

// FTPOptions configures the FTP transport.
type FTPOptions struct {
	Timeout time.Duration
}

// FTPTransport downloads tiles from FTP mirrors. Some state survey agencies
// publish point clouds over anonymous FTP only.
type FTPTransport struct {
	opts FTPOptions
}

// NewFTPTransport creates an FTPTransport with the given options.
func NewFTPTransport(opts FTPOptions) *FTPTransport {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	return &FTPTransport{opts: opts}
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host string, path string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "ftp: parse url")
	}
	if u.Scheme != "ftp" {
		return "", "", eris.Errorf("ftp: expected ftp scheme, got %q", u.Scheme)
	}

	host = u.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "21")
	}

	path = u.Path
	if path == "" {
		return "", "", eris.New("ftp: empty path in url")
	}

	return host, path, nil
}

// ftpConnReader ties the FTP data connection lifetime to the returned body:
// closing the reader closes the response and quits the control connection.
type ftpConnReader struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpConnReader) Read(p []byte) (int, error) {
	return r.resp.Read(p)
}

func (r *ftpConnReader) Close() error {
	respErr := r.resp.Close()
	quitErr := r.conn.Quit()
	if respErr != nil {
		return eris.Wrap(respErr, "ftp: close response")
	}
	if quitErr != nil {
		return eris.Wrap(quitErr, "ftp: quit connection")
	}
	return nil
}

// Download connects, logs in anonymously and retrieves the file. A 550 reply
// (file unavailable) unwraps to ErrNotFound; connection-level faults are
// transient.
func (t *FTPTransport) Download(ctx context.Context, ftpURL string) (io.ReadCloser, error) {
	host, path, err := parseFTPURL(ftpURL)
	if err != nil {
		return nil, err
	}

	zap.L().Debug("ftp: connecting", zap.String("host", host), zap.String("path", path))

	conn, err := ftp.Dial(host, ftp.DialWithTimeout(t.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "ftp: dial"), 0)
	}

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		_ = conn.Quit()
		return nil, eris.Wrap(err, "ftp: login")
	}

	resp, err := conn.Retr(path)
	if err != nil {
		_ = conn.Quit()
		var proto *textproto.Error
		if eris.As(err, &proto) && proto.Code == ftp.StatusFileUnavailable {
			return nil, eris.Wrapf(ErrNotFound, "ftp %d for %s", proto.Code, ftpURL)
		}
		return nil, resilience.NewTransientError(eris.Wrap(err, "ftp: retrieve"), 0)
	}

	return &ftpConnReader{resp: resp, conn: conn}, nil
}
