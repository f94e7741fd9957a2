package systemtest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ndajr/tinyurl-go/internal/core"
	"github.com/stretchr/testify/require"
)

func shorten(t *testing.T, body string) (int, string) {
	t.Helper()
	resp, err := client.Post(serverURL+"/tiny", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(buf)
}

func codeOf(t *testing.T, shortURL string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(shortURL, baseURL), shortURL)
	code := strings.TrimSuffix(strings.TrimPrefix(shortURL, baseURL), "/")
	require.True(t, core.ValidCode(code), code)
	return code
}

func get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := client.Get(serverURL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// fetchJSON is safe to call from an Eventually condition.
func fetchJSON(path string, v any) bool {
	resp, err := client.Get(serverURL + path)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK && json.NewDecoder(resp.Body).Decode(v) == nil
}

func TestTinyURLService(t *testing.T) {
	tests := []struct {
		name   string
		assert func(t *testing.T)
	}{
		{
			name: "Shorten/anonymous_link_redirects",
			assert: func(t *testing.T) {
				status, body := shorten(t, `{"longUrl":"https://github.com/ndajr/tinyurl-go"}`)
				require.Equal(t, http.StatusOK, status)

				resp := get(t, "/"+codeOf(t, body)+"/")
				require.Equal(t, http.StatusFound, resp.StatusCode)
				require.Equal(t, "https://github.com/ndajr/tinyurl-go", resp.Header.Get("Location"))
			},
		},
		{
			name: "Shorten/schemeless_url_is_normalized",
			assert: func(t *testing.T) {
				status, body := shorten(t, `{"longUrl":"example.com"}`)
				require.Equal(t, http.StatusOK, status)

				resp := get(t, "/"+codeOf(t, body)+"/")
				require.Equal(t, http.StatusFound, resp.StatusCode)
				require.Equal(t, "https://www.example.com/", resp.Header.Get("Location"))
			},
		},
		{
			name: "Shorten/failure_on_empty_url",
			assert: func(t *testing.T) {
				status, _ := shorten(t, `{"longUrl":""}`)
				require.Equal(t, http.StatusBadRequest, status)
			},
		},
		{
			name: "Shorten/failure_on_url_too_long",
			assert: func(t *testing.T) {
				status, _ := shorten(t, `{"longUrl":"https://`+strings.Repeat("a", core.MaxURLLength)+`"}`)
				require.Equal(t, http.StatusBadRequest, status)
			},
		},
		{
			name: "Redirect/unknown_code_goes_to_error_page",
			assert: func(t *testing.T) {
				resp := get(t, "/zzzzz0/")
				require.Equal(t, http.StatusFound, resp.StatusCode)
				require.Equal(t, "/notfound", resp.Header.Get("Location"))
			},
		},
		{
			name: "Redirect/malformed_code_goes_to_error_page",
			assert: func(t *testing.T) {
				resp := get(t, "/not-a-code/")
				require.Equal(t, http.StatusFound, resp.StatusCode)
				require.Equal(t, "/notfound", resp.Header.Get("Location"))
			},
		},
		{
			name: "Users/create_twice_conflicts",
			assert: func(t *testing.T) {
				name := runID + "-dup"
				resp, err := client.Post(serverURL+"/user?name="+name, "text/plain", nil)
				require.NoError(t, err)
				resp.Body.Close()
				require.Equal(t, http.StatusOK, resp.StatusCode)

				resp, err = client.Post(serverURL+"/user?name="+name, "text/plain", nil)
				require.NoError(t, err)
				resp.Body.Close()
				require.Equal(t, http.StatusConflict, resp.StatusCode)
			},
		},
		{
			name: "Clicks/owned_link_records_analytics",
			assert: func(t *testing.T) {
				name := runID + "-owner"
				resp, err := client.Post(serverURL+"/user?name="+name, "text/plain", nil)
				require.NoError(t, err)
				resp.Body.Close()
				require.Equal(t, http.StatusOK, resp.StatusCode)

				status, body := shorten(t, `{"longUrl":"https://example.org/docs","userName":"`+name+`"}`)
				require.Equal(t, http.StatusOK, status)
				code := codeOf(t, body)

				require.Equal(t, http.StatusFound, get(t, "/"+code+"/").StatusCode)

				var clicks struct {
					Data []core.ClickEvent `json:"data"`
				}
				require.Eventually(t, func() bool {
					return fetchJSON("/user/"+name+"/clicks", &clicks) && len(clicks.Data) == 1
				}, 5*time.Second, 50*time.Millisecond)
				require.Equal(t, code, clicks.Data[0].Code)
				require.Equal(t, "https://example.org/docs", clicks.Data[0].LongURL)

				var user core.User
				require.Eventually(t, func() bool {
					user = core.User{}
					if !fetchJSON("/user/"+name, &user) {
						return false
					}
					return user.AllURLClicks == 1 && user.Shorts[code].Clicks[core.PeriodKey(clicks.Data[0].ClickTime)] == 1
				}, 5*time.Second, 50*time.Millisecond)
				require.Equal(t, "https://example.org/docs", user.Shorts[code].LongURL)
			},
		},
		{
			name: "Clicks/unknown_user_has_none",
			assert: func(t *testing.T) {
				resp := get(t, "/user/"+runID+"-nobody/clicks")
				require.Equal(t, http.StatusOK, resp.StatusCode)
				var clicks struct {
					Data    []core.ClickEvent `json:"data"`
					Message string            `json:"message"`
				}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&clicks))
				require.Empty(t, clicks.Data)
				require.Equal(t, "No clicks found", clicks.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assert(t)
		})
	}
}

func TestRecord_ConcurrentClicksAgainstStore(t *testing.T) {
	ctx := context.Background()
	name := runID + "-concurrent"
	require.NoError(t, store.CreateUser(ctx, name))
	require.NoError(t, store.SetShort(ctx, name, "aB3xYz", "https://example.com/"))

	const n = 25
	base := time.Now().UTC().Truncate(time.Millisecond)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			service.Record(ctx, name, "aB3xYz", "https://example.com/", base.Add(time.Duration(i)*time.Millisecond))
		}(i)
	}
	wg.Wait()

	user, err := store.GetUser(ctx, name)
	require.NoError(t, err)
	require.Equal(t, int64(n), user.AllURLClicks)

	var perPeriod int64
	for _, c := range user.Shorts["aB3xYz"].Clicks {
		perPeriod += c
	}
	require.Equal(t, int64(n), perPeriod)

	events, err := store.FindClicksByUserName(ctx, name)
	require.NoError(t, err)
	require.Len(t, events, n)
	for i := 1; i < len(events); i++ {
		require.True(t, events[i-1].ClickTime.Before(events[i].ClickTime))
	}
}

func TestAppendClick_SameUserAndTimeConflicts(t *testing.T) {
	ctx := context.Background()
	ev := core.ClickEvent{
		UserName:  runID + "-dupclick",
		ClickTime: time.Now().UTC().Truncate(time.Millisecond),
		Code:      "aB3xYz",
		LongURL:   "https://example.com/",
	}
	require.NoError(t, store.AppendClick(ctx, ev))

	ev.Code = "zZ9yX8"
	require.ErrorIs(t, store.AppendClick(ctx, ev), core.ErrStorageFailure)

	events, err := store.FindClicksByUserName(ctx, ev.UserName)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "aB3xYz", events[0].Code)
}
