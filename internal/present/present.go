// Package present turns a batch of agents into the bytes sent to a client.
package present

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"maharera-api/internal/agents"
)

type Format string

const (
	FormatJson Format = "json"
	FormatCsv  Format = "csv"
)

// ParseFormat maps a user supplied format to a Format, anything that is not
// "csv" is json.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatCsv)) {
		return FormatCsv
	}
	return FormatJson
}

var csvHeader = []string{
	"Sr No",
	"Agent Name",
	"Certificate Number",
	"Details URL",
	"Certificate URL",
}

// Response is a rendered batch. Filename is only set for attachments.
type Response struct {
	ContentType string
	Filename    string
	Body        []byte
}

// ContentDisposition returns the value of the Content-Disposition header, or
// "" when the response is not an attachment.
func (r Response) ContentDisposition() string {
	if r.Filename == "" {
		return ""
	}
	return fmt.Sprintf(`attachment; filename="%s"`, r.Filename)
}

// Render renders result in the given format.
func Render(result agents.BatchResult, format Format) (Response, error) {
	if format == FormatCsv {
		var buf bytes.Buffer
		err := WriteCsv(&buf, result.Agents)
		if err != nil {
			return Response{}, err
		}
		return Response{
			ContentType: "text/csv; charset=utf-8",
			Filename:    fmt.Sprintf("agents_page_%d.csv", result.Pagination.StartPage),
			Body:        buf.Bytes(),
		}, nil
	}

	body, err := MarshalJson(result)
	if err != nil {
		return Response{}, err
	}
	return Response{
		ContentType: "application/json; charset=utf-8",
		Body:        body,
	}, nil
}

// MarshalJson encodes result, a nil agent list is encoded as [].
func MarshalJson(result agents.BatchResult) ([]byte, error) {
	if result.Agents == nil {
		result.Agents = []agents.Record{}
	}
	return json.Marshal(result)
}

// WriteCsv writes the csv header followed by one row per record.
func WriteCsv(w io.Writer, records []agents.Record) error {
	writer := csv.NewWriter(w)
	err := writer.Write(csvHeader)
	if err != nil {
		return err
	}
	for _, record := range records {
		srNo := ""
		if record.SrNo != nil {
			srNo = strconv.Itoa(*record.SrNo)
		}
		err = writer.Write([]string{
			srNo,
			record.Name,
			record.CertificateNo,
			record.DetailsUrl,
			record.CertificateUrl,
		})
		if err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
