package pipeline

import "github.com/use-agent/pokedex/models"

// Wrap converts an outcome into the result envelope. List results carry a
// count; any error becomes {ok:false, error:{code,message}}, with errors
// outside the taxonomy reported as INTERNAL_ERROR.
func Wrap(out models.Outcome) models.Envelope {
	if out.Err != nil {
		return models.Envelope{OK: false, Error: models.AsPipelineError(out.Err).ToDetail()}
	}

	if out.List {
		records := out.Records
		if records == nil {
			records = []*models.Record{}
		}
		count := len(records)
		return models.Envelope{
			OK:   true,
			Data: &models.EnvelopeData{Count: &count, Records: records},
		}
	}

	rec := out.Record
	if rec == nil {
		rec = models.NewRecord(0)
	}
	return models.Envelope{OK: true, Data: &models.EnvelopeData{Records: rec}}
}
