// Package useragent turns raw User-Agent strings into short human labels like
// "Chrome on macOS" for the trusted-device list. Detection is best effort:
// unknown agents degrade to "Unknown Browser on Unknown OS" and never fail.
package useragent
