// Package version carries build information, set at link time:
//
//	go build -ldflags "-X github.com/farcloser/hydrophone/version.version=v1.0.0 -X github.com/farcloser/hydrophone/version.commit=$(git rev-parse --short HEAD)"
package version

//nolint:gochecknoglobals // set through -ldflags
var (
	name    = "hydrophone"
	version = "dev"
	commit  = "unknown"
)

func Name() string {
	return name
}

func Version() string {
	return version
}

func Commit() string {
	return commit
}
