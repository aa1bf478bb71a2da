package importer

import (
	"bytes"
	"io"
	"strings"
)

// TemplateFileName is the suggested download name.
const TemplateFileName = "modelo_importacao.csv"

var templateHeader = []string{
	"Nome do colaborador", "Função", "Unidade", "Estado", "Tipo de solicitação",
	"Data de início", "Data de fim", "Dias corridos", "Dias úteis", "Saldo inicial", "Observação",
}

var templateExample = []string{
	"João Silva", "Analista", "Sede", "SP", "Saldo Inicial",
	"", "", "0", "0", "30", "Importação de saldo residual",
}

// Template returns the import template: BOM, header and one example row,
// ';'-separated so spreadsheet tools with a Portuguese locale open it as-is.
func Template() []byte {
	var buf bytes.Buffer
	buf.Write(utf8BOM)
	buf.WriteString(strings.Join(templateHeader, ";"))
	buf.WriteString("\n")
	buf.WriteString(strings.Join(templateExample, ";"))
	buf.WriteString("\n")
	return buf.Bytes()
}

// WriteTemplate writes Template to w.
func WriteTemplate(w io.Writer) error {
	_, err := w.Write(Template())
	return err
}
