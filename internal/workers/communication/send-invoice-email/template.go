// internal/workers/communication/send-invoice-email/template.go
package sendinvoiceemail

import (
	"bytes"
	"html/template"
)

var invoiceHTML = template.Must(template.New("invoice").Parse(`<div style="font-family: sans-serif; color: #333;">
<h2>Dobrý den, {{.ClientName}},</h2>
<p>děkujeme, že využíváte služeb Dr.Clean.</p>
<p>Fakturu č. <strong>{{.Number}}</strong> za provedený úklid naleznete zde: <a href="{{.PDFURL}}">{{.FileName}}</a></p>
<p>Částka k úhradě: <strong>{{.Total}} Kč</strong>{{if .DueDate}}, splatnost {{.DueDate}}{{end}}. Variabilní symbol: {{.Number}}.</p>
<br/>
<p>S pozdravem,</p>
<p><strong>Tým Dr.Clean</strong><br/>
<a href="https://drclean.cz">www.drclean.cz</a><br/>
<a href="mailto:uklid@drclean.cz">uklid@drclean.cz</a></p>
</div>`))

type invoiceView struct {
	ClientName string
	Number     string
	PDFURL     string
	FileName   string
	Total      string
	DueDate    string
}

func renderHTML(v invoiceView) (string, error) {
	var buf bytes.Buffer
	if err := invoiceHTML.Execute(&buf, v); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderText(v invoiceView) string {
	text := "Dobrý den, " + v.ClientName + ",\n\n" +
		"děkujeme, že využíváte služeb Dr.Clean.\n" +
		"Fakturu č. " + v.Number + " naleznete zde: " + v.PDFURL + "\n" +
		"Částka k úhradě: " + v.Total + " Kč"
	if v.DueDate != "" {
		text += ", splatnost " + v.DueDate
	}
	return text + ".\n\nS pozdravem,\nTým Dr.Clean\n"
}
