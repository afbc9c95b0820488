// Package uws parses Universal Worker Service job-status documents,
// the XML snapshots a TAP service serves from a job's status URL.
//
// Parsing enforces the per-phase contract of the protocol: a document
// reporting COMPLETED must name a result resource, and one reporting
// ERROR must carry a human-readable message. Absence of either is a
// malformed document, never a silent empty string.
package uws

import (
	"encoding/xml"
	"errors"
	"fmt"
)

// ErrMalformedDocument is the sentinel error wrapped by [ParseError].
var ErrMalformedDocument = errors.New("malformed UWS status document")

// ParseError reports a status document that violates the UWS contract.
type ParseError struct {
	Detail string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Detail)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Job is the parsed snapshot of one status-document fetch.
//
// Only Phase is mandatory. ResultURL is populated exactly when the
// phase is completed, ErrorMessage exactly when it is error. The
// remaining fields are optional per the standard and are left empty
// when the server omits them.
type Job struct {
	ID                string
	ProcessID         string
	OwnerID           string
	Quote             string
	Phase             Phase
	RawPhase          string
	StartTime         string
	EndTime           string
	ExecutionDuration string
	Destruction       string
	Parameters        []Parameter
	ResultURL         string
	ErrorMessage      string
}

// Parameter is one submission parameter echoed back by the service.
type Parameter struct {
	ID    string
	Value string
}

// statusDocument mirrors the wire shape of a uws:job element. Matching
// is by local name so that the uws: prefix and the exact namespace
// version URI are irrelevant.
type statusDocument struct {
	XMLName           xml.Name       `xml:"job"`
	JobID             string         `xml:"jobId"`
	ProcessID         string         `xml:"processId"`
	OwnerID           string         `xml:"ownerId"`
	Quote             string         `xml:"quote"`
	Phase             string         `xml:"phase"`
	StartTime         string         `xml:"startTime"`
	EndTime           string         `xml:"endTime"`
	ExecutionDuration string         `xml:"executionDuration"`
	Destruction       string         `xml:"destruction"`
	Parameters        *parameterList `xml:"parameters"`
	Results           *resultList    `xml:"results"`
	ErrorSummary      *errorSummary  `xml:"errorSummary"`
}

type parameterList struct {
	Parameters []parameterEntry `xml:"parameter"`
}

type parameterEntry struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type resultList struct {
	Results []resultEntry `xml:"result"`
}

type resultEntry struct {
	ID   string `xml:"id,attr"`
	Href string `xml:"href,attr"`
}

type errorSummary struct {
	Type    string `xml:"type,attr"`
	Message string `xml:"message"`
}

// Parse decodes the raw body of a status-URL GET into a [Job].
//
// It fails with an error wrapping [ErrMalformedDocument] when the body
// is not XML, the top-level job element is missing, the phase element
// is missing, or a phase-mandated field (result href, error message)
// is absent.
func Parse(doc []byte) (*Job, error) {
	var sd statusDocument
	if err := xml.Unmarshal(doc, &sd); err != nil {
		return nil, &ParseError{
			Detail: fmt.Sprintf("decoding job element: %v", err),
			Err:    ErrMalformedDocument,
		}
	}

	if sd.Phase == "" {
		return nil, &ParseError{
			Detail: "job element carries no phase",
			Err:    ErrMalformedDocument,
		}
	}

	job := Job{
		ID:                sd.JobID,
		ProcessID:         sd.ProcessID,
		OwnerID:           sd.OwnerID,
		Quote:             sd.Quote,
		Phase:             ParsePhase(sd.Phase),
		RawPhase:          sd.Phase,
		StartTime:         sd.StartTime,
		EndTime:           sd.EndTime,
		ExecutionDuration: sd.ExecutionDuration,
		Destruction:       sd.Destruction,
	}

	if sd.Parameters != nil {
		for _, p := range sd.Parameters.Parameters {
			job.Parameters = append(job.Parameters, Parameter{ID: p.ID, Value: p.Value})
		}
	}

	switch job.Phase {
	case PhaseCompleted:
		if sd.Results == nil || len(sd.Results.Results) == 0 || sd.Results.Results[0].Href == "" {
			return nil, &ParseError{
				Detail: "phase is COMPLETED but no result href is present",
				Err:    ErrMalformedDocument,
			}
		}
		job.ResultURL = sd.Results.Results[0].Href

	case PhaseError:
		if sd.ErrorSummary == nil || sd.ErrorSummary.Message == "" {
			return nil, &ParseError{
				Detail: "phase is ERROR but no errorSummary message is present",
				Err:    ErrMalformedDocument,
			}
		}
		job.ErrorMessage = sd.ErrorSummary.Message
	}

	return &job, nil
}
