// Package goneid is a client library for the NEID solar and stellar
// radial-velocity archive at IPAC. It covers login, criteria and ADQL
// metadata queries through the archive's TAP service, asynchronous UWS
// job tracking, and bulk retrieval of FITS files.
//
// Most callers want [NewArchive]; [NewTAP] exposes the bare TAP layer
// for use against other VO services.
package goneid

import (
	"github.com/caltech-ipac/goneid/archive"
	"github.com/caltech-ipac/goneid/tap"
)

// NewArchive builds a client for the production NEID archive. Options
// adjust format, session credentials, polling, and transport.
func NewArchive(opts ...archive.Option) (*archive.Archive, error) {
	return archive.New(archive.DefaultBaseURL, opts...)
}

// NewTAP builds a client for an arbitrary TAP endpoint, for callers
// who bring their own ADQL and want only the job machinery.
func NewTAP(baseURL string, opts ...tap.ServiceOption) (*tap.Service, error) {
	return tap.New(baseURL, opts...)
}
