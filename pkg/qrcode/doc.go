// Package qrcode renders QR codes for TOTP provisioning URIs, either as raw
// PNG bytes or as a base64 data URI that drops straight into an <img> tag.
package qrcode
