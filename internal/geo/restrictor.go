package geo

import (
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/pulseboard/pulseboard/internal/logging"
)

// restrictedCountries are the ISO codes the gateway refuses to serve
var restrictedCountries = map[string]bool{
	"RU": true, "CN": true, "KP": true, "IR": true, "NG": true,
	"UA": true, "BR": true, "BI": true, "AF": true, "SD": true,
	"CD": true, "VE": true, "CU": true,
}

// Restrictor answers country-level allow/deny for client IPs using a
// MaxMind database. Without a database it allows everyone.
type Restrictor struct {
	reader *geoip2.Reader
	devIP  string
	logger *logging.Logger
}

// New opens the database at mmdbPath. An empty path disables lookups (every
// IP allowed); a path that fails to open is an error.
func New(mmdbPath, devIP string, logger *logging.Logger) (*Restrictor, error) {
	r := &Restrictor{devIP: devIP, logger: logger}

	if mmdbPath == "" {
		logger.Info("Geo restriction disabled, no database configured")
		return r, nil
	}

	reader, err := geoip2.Open(mmdbPath)
	if err != nil {
		return nil, fmt.Errorf("open geoip database: %w", err)
	}
	r.reader = reader
	return r, nil
}

// Allowed reports whether addr may use the gateway. Loopback, private
// ranges, the dev IP, and unresolvable addresses are always allowed; only a
// positive match on a restricted country denies.
func (r *Restrictor) Allowed(addr string) bool {
	if addr == r.devIP && r.devIP != "" {
		return true
	}

	ip := net.ParseIP(addr)
	if ip == nil {
		return true
	}
	if ip.IsLoopback() || ip.IsPrivate() {
		return true
	}
	if r.reader == nil {
		return true
	}

	country, err := r.reader.Country(ip)
	if err != nil {
		r.logger.Debug("Geo lookup failed", logging.WithField("ip", addr))
		return true
	}
	if restrictedCountries[country.Country.IsoCode] {
		r.logger.Info("Denied restricted region", logging.WithFields(map[string]interface{}{
			"ip":      addr,
			"country": country.Country.IsoCode,
		}))
		return false
	}
	return true
}

// Close releases the database reader
func (r *Restrictor) Close() {
	if r.reader != nil {
		r.reader.Close()
	}
}
