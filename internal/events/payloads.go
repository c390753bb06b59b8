package events

import "time"

// ExtractStarted reports that a session began an extraction, with the
// short summary shown in history.
func ExtractStarted(sessionID, summary string) Event {
	return NewEventWithSession(EventExtractStarted, SourceExtract, map[string]any{
		"summary": summary,
	}, sessionID)
}

// ExtractCompleted reports counts only; the result itself stays in the
// session store.
func ExtractCompleted(sessionID string, tasks, memos int) Event {
	return NewEventWithSession(EventExtractCompleted, SourceExtract, map[string]any{
		"tasks": tasks,
		"memos": memos,
	}, sessionID)
}

// ExtractFailed reports a user-visible extraction failure.
func ExtractFailed(sessionID, reason string) Event {
	return NewEventWithSession(EventExtractFailed, SourceExtract, map[string]any{
		"error": reason,
	}, sessionID)
}

// ModelCall records one attempted call to a candidate model.
func ModelCall(sessionID, model string, promptTokens, completionTokens int, elapsed time.Duration, callErr error) Event {
	payload := map[string]any{
		"model":             model,
		"prompt_tokens":     promptTokens,
		"completion_tokens": completionTokens,
		"duration_ms":       elapsed.Milliseconds(),
		"ok":                callErr == nil,
	}
	if callErr != nil {
		payload["error"] = callErr.Error()
	}
	return NewEventWithSession(EventModelCall, SourceExtract, payload, sessionID)
}

// ExportWritten reports artifact paths written by an export.
func ExportWritten(sessionID string, paths []string) Event {
	return NewEventWithSession(EventExportWritten, SourceExport, map[string]any{
		"paths": paths,
	}, sessionID)
}

// AuthResult reports a password submission outcome.
func AuthResult(sessionID string, granted bool) Event {
	typ := EventAuthGranted
	if !granted {
		typ = EventAuthDenied
	}
	return NewEventWithSession(typ, SourceGateway, nil, sessionID)
}
