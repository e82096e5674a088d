package homey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/TheLostHomeyAppRepositories/mcp-homey/internal/models"
)

const (
	gigabyte      = int64(1024 * 1024 * 1024)
	bytesPerLog   = int64(1024 * 100)
	entriesPerLog = int64(1000)
)

var (
	logEndpoints     = []string{"/api/manager/insights/log", "/api/manager/insights/log/"}
	storageEndpoints = []string{"/api/manager/insights/storage", "/api/manager/insights/", "/api/manager/insights"}
)

type InsightsAPI struct {
	c *Client
}

// rawLogs is the logs body as the hub sent it: newer firmware answers with a
// list, older firmware with a map that is already keyed.
type rawLogs interface {
	logs() map[string]models.InsightsLog
}

type rawLogList []gjson.Result

type rawLogMap map[string]models.InsightsLog

func decodeLogs(body []byte) (rawLogs, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("insights logs: invalid JSON")
	}
	res := gjson.ParseBytes(body)
	switch {
	case res.IsArray():
		return rawLogList(res.Array()), nil
	case res.IsObject():
		var m rawLogMap
		if err := json.Unmarshal(body, &m); err != nil {
			return nil, fmt.Errorf("insights logs: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("insights logs: unexpected %s body", res.Type)
	}
}

func (m rawLogMap) logs() map[string]models.InsightsLog {
	if m == nil {
		return map[string]models.InsightsLog{}
	}
	return m
}

// logs keys every entry by "{deviceId}.{capability}". Entries without both
// id and ownerUri are dropped.
func (l rawLogList) logs() map[string]models.InsightsLog {
	out := make(map[string]models.InsightsLog, len(l))
	for _, item := range l {
		if !item.IsObject() {
			continue
		}
		id, owner := item.Get("id"), item.Get("ownerUri")
		if !id.Exists() || !owner.Exists() {
			continue
		}

		ownerURI := owner.String()
		capName := item.Get("ownerId").String()
		deviceID := "unknown"
		if parts := strings.Split(ownerURI, ":"); len(parts) > 2 {
			deviceID = parts[len(parts)-1]
		}

		log := models.InsightsLog{
			ID:       capName,
			FullID:   id.String(),
			URI:      ownerURI,
			Name:     stringOr(item.Get("ownerName"), "Unknown") + " - " + stringOr(item.Get("title"), capName),
			Type:     stringOr(item.Get("type"), "unknown"),
			Units:    stringOr(item.Get("units"), ""),
			Decimals: 1,
		}
		if dec := item.Get("decimals"); dec.Type == gjson.Number {
			log.Decimals = int(dec.Int())
		}
		if last := item.Get("lastValue"); last.Exists() {
			log.LastValue = last.Value()
		}
		out[deviceID+"."+capName] = log
	}
	return out
}

func stringOr(r gjson.Result, fallback string) string {
	if !r.Exists() || r.Type == gjson.Null {
		return fallback
	}
	return r.String()
}

// Logs returns the insights logs keyed by "{deviceId}.{capability}". It is
// rebuilt on every call. An empty map means no log endpoint answered 200.
func (i *InsightsAPI) Logs(ctx context.Context) (map[string]models.InsightsLog, error) {
	if i.c.demo() {
		return demoLogs(), nil
	}

	for _, path := range logEndpoints {
		status, data, err := i.c.do(ctx, "insights.logs", http.MethodGet, path, nil, nil)
		if err != nil || status != http.StatusOK {
			i.c.log.Debugw("insights log endpoint failed", "path", path, "status", status, "error", err)
			continue
		}
		raw, err := decodeLogs(data)
		if err != nil {
			return nil, fmt.Errorf("failed to get insights logs: %w", err)
		}
		return raw.logs(), nil
	}

	i.c.log.Warnw("no insights log endpoint worked")
	return map[string]models.InsightsLog{}, nil
}

// Entries returns the points of one device capability log, oldest first. A
// log that does not exist yields no entries and no error.
func (i *InsightsAPI) Entries(ctx context.Context, q models.EntriesQuery) ([]models.LogEntry, error) {
	if i.c.demo() {
		return i.demoEntries(q), nil
	}

	logs, err := i.Logs(ctx)
	if err != nil {
		return nil, err
	}
	key := q.DeviceID + "." + q.Capability
	log, ok := logs[key]
	if !ok {
		i.c.log.Warnw("no insights log found", "key", key)
		return nil, nil
	}
	if log.FullID == "" {
		i.c.log.Warnw("insights log has no full id", "key", key)
		return nil, nil
	}

	params := url.Values{}
	if q.Resolution != "" {
		params.Set("resolution", q.Resolution)
	}
	if !q.From.IsZero() {
		params.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		params.Set("to", q.To.UTC().Format(time.RFC3339))
	}

	path := "/api/manager/insights/log/" + escapeSegment(log.FullID) + "/entry"
	_, data, err := i.c.do(ctx, "insights.entries", http.MethodGet, path, params, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get insights entries for %s: %w", key, err)
	}
	entries, err := decodeEntries(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode insights entries for %s: %w", key, err)
	}
	return entries, nil
}

// escapeSegment escapes every reserved character, ':' and '/' included.
func escapeSegment(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// decodeEntries accepts a bare array or an object with a values array.
func decodeEntries(body []byte) ([]models.LogEntry, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON")
	}
	res := gjson.ParseBytes(body)
	if res.IsObject() {
		res = res.Get("values")
	}
	if !res.IsArray() {
		return nil, fmt.Errorf("unexpected %s body", res.Type)
	}

	items := res.Array()
	entries := make([]models.LogEntry, 0, len(items))
	for _, item := range items {
		t, ok := parseTimestamp(item.Get("t"))
		if !ok {
			continue
		}
		entries = append(entries, models.LogEntry{T: t, V: item.Get("v").Value()})
	}
	slices.SortStableFunc(entries, func(a, b models.LogEntry) int { return a.T.Compare(b.T) })
	return entries, nil
}

// parseTimestamp reads RFC 3339 strings or Unix milliseconds.
func parseTimestamp(r gjson.Result) (time.Time, bool) {
	switch r.Type {
	case gjson.String:
		t, err := time.Parse(time.RFC3339Nano, r.String())
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	case gjson.Number:
		return time.UnixMilli(r.Int()).UTC(), true
	default:
		return time.Time{}, false
	}
}

func (i *InsightsAPI) State(ctx context.Context) (models.InsightsState, error) {
	if i.c.demo() {
		return models.InsightsState{
			Enabled: true,
			Version: "1.0.0",
			Storage: &models.StorageInfo{Used: 50 * 1024 * 1024, Total: gigabyte},
		}, nil
	}
	var state models.InsightsState
	if err := i.c.getJSON(ctx, "insights.state", "/api/manager/insights/state", nil, &state); err != nil {
		return models.InsightsState{}, fmt.Errorf("failed to get insights state: %w", err)
	}
	return state, nil
}

// Storage reports insights storage usage. When the hub exposes no storage
// endpoint the figures are estimated from the number of logs.
func (i *InsightsAPI) Storage(ctx context.Context) (models.StorageInfo, error) {
	if i.c.demo() {
		return models.StorageInfo{Used: 50 * 1024 * 1024, Total: gigabyte, Entries: 125000, Logs: 25}, nil
	}

	for _, path := range storageEndpoints {
		status, data, err := i.c.do(ctx, "insights.storage", http.MethodGet, path, nil, nil)
		if err != nil || status != http.StatusOK {
			continue
		}
		if info, ok := storageInfo(data); ok {
			return info, nil
		}
	}

	logs, err := i.Logs(ctx)
	if err != nil {
		i.c.log.Errorw("failed to estimate insights storage", "error", err)
		return models.StorageInfo{Total: gigabyte}, nil
	}
	n := int64(len(logs))
	return models.StorageInfo{Used: n * bytesPerLog, Total: gigabyte, Entries: n * entriesPerLog, Logs: n}, nil
}

// storageInfo accepts any object carrying one of the storage keys.
func storageInfo(body []byte) (models.StorageInfo, bool) {
	if !gjson.ValidBytes(body) {
		return models.StorageInfo{}, false
	}
	res := gjson.ParseBytes(body)
	if !res.IsObject() {
		return models.StorageInfo{}, false
	}
	for _, key := range []string{"used", "total", "storage", "size"} {
		if res.Get(key).Exists() {
			return models.StorageInfo{
				Used:    res.Get("used").Int(),
				Total:   res.Get("total").Int(),
				Entries: res.Get("entries").Int(),
				Logs:    res.Get("logs").Int(),
			}, true
		}
	}
	return models.StorageInfo{}, false
}
