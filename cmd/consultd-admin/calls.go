package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/voicebot/consultd/internal/domain/model"
)

const requestTimeout = 30 * time.Second

func newSubmitCmd(app *adminApp) *cobra.Command {
	var questionsID, accountID string
	cmd := &cobra.Command{
		Use:   "submit <contact-id>...",
		Short: "Queue a consultation batch for one or more contacts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			body := map[string]any{"vulnerableIds": args, "questionsId": questionsID}
			if accountID != "" {
				body["accountId"] = accountID
			}
			data, _, err := c.do(ctx, http.MethodPost, "/api/call/queue/batch", body)
			if err != nil {
				return err
			}
			if app.rawJSON {
				return app.printRawJSON(data)
			}
			var resp struct {
				JobIDs []string `json:"jobIds"`
			}
			if err := json.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			for _, id := range resp.JobIDs {
				if _, err := fmt.Fprintln(app.out, id); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&questionsID, "questions", "", "Question set ID")
	cmd.Flags().StringVar(&accountID, "account", "", "Account that owns the batch")
	_ = cmd.MarkFlagRequired("questions")
	return cmd
}

func newStartCmd(app *adminApp) *cobra.Command {
	var accountID string
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Dispatch the next waiting consultation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			var body any
			if accountID != "" {
				body = map[string]string{"accountId": accountID}
			}
			data, status, err := c.do(ctx, http.MethodPost, "/api/call/start", body)
			if err != nil {
				return err
			}
			if status == http.StatusNoContent {
				_, err = fmt.Fprintln(app.out, "queue empty")
				return err
			}
			if app.rawJSON {
				return app.printRawJSON(data)
			}
			var resp struct {
				Job *model.Job `json:"job"`
			}
			if err := json.Unmarshal(data, &resp); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			if resp.Job == nil {
				return errors.New("response carried no job")
			}
			_, err = fmt.Fprintf(app.out, "%s %s contact=%s\n", resp.Job.ID, resp.Job.State, resp.Job.ContactID)
			return err
		},
	}
	cmd.Flags().StringVar(&accountID, "account", "", "Account to attribute the dispatch to")
	return cmd
}

func newQueueCmd(app *adminApp) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Show the waiting queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := app.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout)
			defer cancel()

			path := "/api/call/queue/status?limit=" + strconv.Itoa(limit)
			data, _, err := c.do(ctx, http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			if app.rawJSON {
				return app.printRawJSON(data)
			}
			var st model.QueueStatus
			if err := json.Unmarshal(data, &st); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return app.printQueue(st)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of waiting jobs to list")
	return cmd
}

func (app *adminApp) printQueue(st model.QueueStatus) error {
	if _, err := fmt.Fprintf(app.out, "Waiting: %d\n", st.Count); err != nil {
		return err
	}
	if len(st.Jobs) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(app.out, 0, 2, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "JOB\tCONTACT\tQUESTIONS\tACCOUNT\tCREATED"); err != nil {
		return err
	}
	for _, j := range st.Jobs {
		if j == nil {
			continue
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			j.ID, j.ContactID, j.QuestionSetID, dashIfEmpty(j.AccountID), j.CreatedAt.Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func newWatchCmd(app *adminApp) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "watch <admin-id>",
		Short: "Stream live job status updates until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := app.client()
			if err != nil {
				return err
			}
			path := "/api/call/sse/" + url.PathEscape(args[0])
			if filter != "" {
				path += "?filter=" + url.QueryEscape(filter)
			}
			req, err := c.newRequest(cmd.Context(), http.MethodGet, path, nil)
			if err != nil {
				return err
			}
			req.Header.Set("Accept", "text/event-stream")
			resp, err := c.http.Do(req)
			if err != nil {
				if errors.Is(cmd.Context().Err(), context.Canceled) {
					return nil
				}
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
				return decodeAPIError(resp.StatusCode, data)
			}
			err = app.consumeStream(resp.Body)
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "JMESPath expression evaluated against each update")
	return cmd
}

// consumeStream prints every statusUpdate event until the stream ends.
func (app *adminApp) consumeStream(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	var event string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			event = ""
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if err := app.printStreamEvent(event, payload); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

func (app *adminApp) printStreamEvent(event, payload string) error {
	if event != "statusUpdate" {
		_, err := fmt.Fprintf(app.errOut, "%s: %s\n", dashIfEmpty(event), payload)
		return err
	}
	if app.rawJSON {
		_, err := fmt.Fprintln(app.out, payload)
		return err
	}
	var ev model.StatusEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return fmt.Errorf("decode status update: %w", err)
	}
	line := fmt.Sprintf("%-11s %s (%s) %q", ev.State, ev.ContactID, dashIfEmpty(ev.ContactName), ev.QuestionSetTitle)
	if ev.SessionIndex > 0 {
		line += " session=" + strconv.Itoa(ev.SessionIndex)
	}
	if ev.ErrorMessage != "" {
		line += " error=" + strconv.Quote(ev.ErrorMessage)
	}
	_, err := fmt.Fprintln(app.out, line)
	return err
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
