package themesdk

import (
	"time"

	"github.com/imroc/req/v3"
	"github.com/openmined/themesync/internal/version"
)

const (
	HeaderUserAgent      = "User-Agent"
	HeaderThemesyncVer   = "X-Themesync-Version"
	defaultRetryCount    = 3
	defaultRetryInterval = time.Second
)

// HTTPClient carries the settings shared by every store client.
var HTTPClient = req.C().
	SetCommonRetryCount(defaultRetryCount).
	SetCommonRetryFixedInterval(defaultRetryInterval).
	SetUserAgent(version.UserAgent()).
	SetCommonHeader(HeaderThemesyncVer, version.Version).
	SetJsonMarshal(jsonMarshal).
	SetJsonUnmarshal(jsonUnmarshal)
