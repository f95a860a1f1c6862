// Package ipgeo tags callers with the country their IP address belongs to.
//
// Only the country is read from the MMDB file so any GeoLite2 or GeoIP2
// database that carries a country record works, city editions included.
package ipgeo

import (
	"fmt"
	"net/netip"

	"github.com/oschwald/maxminddb-golang/v2"
)

// Labels returned for addresses that never reach the database.
const (
	Local = "local"
	CGNAT = "cgnat"
)

// sharedSpace is RFC 6598 carrier-grade NAT space, also used by Tailscale.
var sharedSpace = netip.MustParsePrefix("100.64.0.0/10")

// Checker looks up callers in an MMDB database. The zero value and a nil
// *Checker still label non-routable addresses.
type Checker struct {
	db *maxminddb.Reader
}

// Open memory-maps the database at path.
func Open(path string) (*Checker, error) {
	db, err := maxminddb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ipgeo: %w", err)
	}
	return &Checker{db: db}, nil
}

func (c *Checker) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// CountryCode returns the ISO 3166-1 alpha-2 code of ip, Local or CGNAT for
// addresses that are not publicly routable, and "" when nothing is known.
func (c *Checker) CountryCode(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ""
	}
	addr = addr.Unmap()
	if label := classify(addr); label != "" {
		return label
	}
	if c == nil || c.db == nil {
		return ""
	}
	return c.lookup(addr)
}

// classify labels addresses that no geo database can place.
func classify(addr netip.Addr) string {
	switch {
	case addr.IsLoopback(), addr.IsPrivate(), addr.IsUnspecified(), addr.IsLinkLocalUnicast():
		return Local
	case sharedSpace.Contains(addr):
		return CGNAT
	}
	return ""
}

func (c *Checker) lookup(addr netip.Addr) string {
	var rec struct {
		Country struct {
			ISOCode string `maxminddb:"iso_code"`
		} `maxminddb:"country"`
	}
	if err := c.db.Lookup(addr).Decode(&rec); err != nil {
		return ""
	}
	return rec.Country.ISOCode
}
