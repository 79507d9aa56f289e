package ocf

import (
	"bytes"
	"encoding/xml"
	"strings"
)

// PackageMediaType is the media type of an OPF package document.
const PackageMediaType = "application/oebps-package+xml"

// ContainerXML renders META-INF/container.xml pointing at the package document.
func ContainerXML(packagePath string) []byte {
	packagePath = strings.TrimLeft(strings.ReplaceAll(packagePath, `\`, "/"), "/")

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">` + "\n")
	buf.WriteString("  <rootfiles>\n")
	buf.WriteString(`    <rootfile full-path="`)
	_ = xml.EscapeText(&buf, []byte(packagePath))
	buf.WriteString(`" media-type="` + PackageMediaType + `"/>` + "\n")
	buf.WriteString("  </rootfiles>\n")
	buf.WriteString("</container>\n")
	return buf.Bytes()
}
