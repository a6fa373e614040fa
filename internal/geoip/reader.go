package geoip

import (
	"errors"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"
	"github.com/woozymasta/tailexit/internal/models"
)

// ErrInvalidIP is returned for input that does not parse as an IP address.
var ErrInvalidIP = errors.New("invalid IP address")

// Provider wraps the GeoIP2 city database reader.
type Provider struct {
	db *geoip2.Reader
}

// Open initializes the GeoIP database reader from a specific file path.
func Open(path string) (*Provider, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}

	return &Provider{db: db}, nil
}

// Close closes the underlying GeoIP database reader.
func (p *Provider) Close() error {
	return p.db.Close()
}

// Locate resolves an IP address to a location with coordinates.
// Names are taken in English.
func (p *Provider) Locate(ipStr string) (*models.Location, error) {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIP, ipStr)
	}

	record, err := p.db.City(ip)
	if err != nil {
		return nil, err
	}

	loc := &models.Location{
		Country:     record.Country.Names["en"],
		CountryCode: record.Country.IsoCode,
		City:        record.City.Names["en"],
		Latitude:    record.Location.Latitude,
		Longitude:   record.Location.Longitude,
	}
	if !loc.HasCoordinates() {
		return nil, fmt.Errorf("no coordinates for %s", ipStr)
	}

	return loc, nil
}
