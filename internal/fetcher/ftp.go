package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// FTPOptions configures FTP retrieval of input artifacts.
type FTPOptions struct {
	User     string
	Password string
	Timeout  time.Duration
}

// DownloadFTP retrieves a file from an ftp:// URL into destDir and returns
// the local path. Used when the price-book drop lives on a partner FTP server
// instead of a local upload.
func DownloadFTP(ctx context.Context, rawURL, destDir string, opts FTPOptions) (string, error) {
	host, remotePath, err := parseFTPURL(rawURL)
	if err != nil {
		return "", err
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	conn, err := ftp.Dial(host, ftp.DialWithContext(ctx), ftp.DialWithTimeout(opts.Timeout))
	if err != nil {
		return "", eris.Wrapf(err, "ftp: dial %s", host)
	}
	defer conn.Quit() //nolint:errcheck

	user, pass := opts.User, opts.Password
	if user == "" {
		user, pass = "anonymous", "anonymous"
	}
	if err := conn.Login(user, pass); err != nil {
		return "", eris.Wrap(err, "ftp: login")
	}

	resp, err := conn.Retr(remotePath)
	if err != nil {
		return "", eris.Wrapf(err, "ftp: retrieve %s", remotePath)
	}
	defer resp.Close() //nolint:errcheck

	localPath := filepath.Join(destDir, path.Base(remotePath))
	out, err := os.Create(localPath)
	if err != nil {
		return "", eris.Wrap(err, "ftp: create local file")
	}
	defer out.Close() //nolint:errcheck

	n, err := io.Copy(out, resp)
	if err != nil {
		return "", eris.Wrapf(err, "ftp: download %s", remotePath)
	}

	zap.L().Info("ftp: downloaded input artifact",
		zap.String("url", rawURL),
		zap.String("path", localPath),
		zap.Int64("bytes", n),
	)
	return localPath, nil
}

// parseFTPURL extracts host (with port) and path from an FTP URL.
func parseFTPURL(rawURL string) (host, remotePath string, err error) {
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

	if u.Path == "" {
		return "", "", eris.New("ftp: empty path in url")
	}
	return host, u.Path, nil
}
