// Package validator centralizes syntax validation and normalization for the
// identifier kinds the investigation core expands.
package validator

import (
	"net"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Domain validators

// IsDomain reports whether a string is a valid domain name.
// Supports internationalized domains (IDN) and punycode.
func IsDomain(domain string) bool {
	if len(domain) == 0 || len(domain) > 253 {
		return false
	}

	domainRegex := regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9\-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,}$`)
	if !domainRegex.MatchString(domain) {
		return false
	}

	// A bare IP is not a domain
	if net.ParseIP(domain) != nil {
		return false
	}

	return true
}

// NormalizeDomain normalizes a domain to its canonical form.
func NormalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	domain = strings.TrimSuffix(domain, ".")
	domain = strings.TrimPrefix(domain, "www.")
	return domain
}

// RegistrableRoot returns the registrable domain (eTLD+1) of a domain:
// "a.b.example.com" -> "example.com", "sub.example.co.uk" -> "example.co.uk".
func RegistrableRoot(domain string) string {
	domain = NormalizeDomain(domain)
	root, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		// Fallback for inputs the public suffix list cannot place
		// (bare suffixes, single labels): last two labels.
		parts := strings.Split(domain, ".")
		if len(parts) <= 2 {
			return domain
		}
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return root
}

// Email validators

// IsEmail validates email format (simplified RFC 5322).
func IsEmail(email string) bool {
	if len(email) == 0 || len(email) > 254 {
		return false
	}

	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}

// NormalizeEmail normalizes an email to its canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailDomain returns the domain part of an email, or "" if malformed.
func EmailDomain(email string) string {
	email = NormalizeEmail(email)
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return email[at+1:]
}

// Network validators

// IsIP reports whether a string is a valid IP address (v4 or v6).
func IsIP(ip string) bool {
	return net.ParseIP(ip) != nil
}

// NormalizeIP normalizes an IP to its canonical form.
// Returns "" for invalid input.
func NormalizeIP(ip string) string {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return ""
	}
	return parsed.String()
}

// Phone validators

// IsPhone validates an E.164-style phone number, with or without the
// leading plus, allowing common separators.
func IsPhone(phone string) bool {
	normalized := NormalizePhone(phone)
	if normalized == "" {
		return false
	}
	phoneRegex := regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)
	return phoneRegex.MatchString(normalized)
}

// NormalizePhone strips separators and ensures a leading plus.
// Returns "" if non-digit garbage remains.
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	phone = strings.TrimPrefix(phone, "+")

	var b strings.Builder
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')':
			// separator, drop
		default:
			return ""
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "+" + b.String()
}

// Wallet validators

// IsBitcoinAddress matches legacy (1..., 3...) and bech32 (bc1...) addresses.
func IsBitcoinAddress(addr string) bool {
	legacy := regexp.MustCompile(`^[13][a-km-zA-HJ-NP-Z1-9]{25,34}$`)
	bech32 := regexp.MustCompile(`^bc1[a-z0-9]{25,90}$`)
	return legacy.MatchString(addr) || bech32.MatchString(strings.ToLower(addr))
}

// IsEthereumAddress matches 0x-prefixed 20-byte hex addresses.
func IsEthereumAddress(addr string) bool {
	ethRegex := regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	return ethRegex.MatchString(addr)
}

// IsWallet reports whether a string looks like a supported crypto address.
func IsWallet(addr string) bool {
	addr = strings.TrimSpace(addr)
	return IsBitcoinAddress(addr) || IsEthereumAddress(addr)
}

// NormalizeWallet canonicalizes a wallet address. Ethereum addresses are
// lowercased; Bitcoin legacy addresses are case-significant and kept as-is.
func NormalizeWallet(addr string) string {
	addr = strings.TrimSpace(addr)
	if IsEthereumAddress(addr) {
		return strings.ToLower(addr)
	}
	return addr
}

// Handle validators

// IsHandle validates a social handle: optional @, then alphanumerics,
// underscores and dots.
func IsHandle(handle string) bool {
	normalized := NormalizeHandle(handle)
	if normalized == "" || len(normalized) > 64 {
		return false
	}
	handleRegex := regexp.MustCompile(`^[a-z0-9][a-z0-9._]*$`)
	return handleRegex.MatchString(normalized)
}

// NormalizeHandle lowercases and strips the @ sigil.
func NormalizeHandle(handle string) string {
	handle = strings.ToLower(strings.TrimSpace(handle))
	return strings.TrimPrefix(handle, "@")
}
