package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-access/internal/admission"
	api "github.com/mind-engage/mindengage-access/internal/api/http"
	"github.com/mind-engage/mindengage-access/internal/rbac"
	"github.com/mind-engage/mindengage-access/internal/rules"
)

func newEvaluateCmd() *cobra.Command {
	var (
		quizID, userID, role string
		ip, userAgent, pw    string
		completed            []string
		secureWindow         bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Print the admission decision for one user on one quiz",
		Example: `  accessd evaluate --quiz q1 --user alice
  accessd evaluate --quiz q1 --user bob --role teacher --ip 10.0.0.7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			env := rules.Environment{
				ClientIP:   ip,
				UserAgent:  userAgent,
				JavaScript: secureWindow,
				Password:   pw,
			}
			if len(completed) > 0 {
				env.Completed = map[string]bool{}
				for _, c := range completed {
					env.Completed[strings.TrimSpace(c)] = true
				}
			}
			res, err := a.service.View(cmd.Context(), admission.ViewRequest{
				QuizID: quizID,
				UserID: userID,
				Caps:   api.CapabilitiesFor(rbac.Default(), role),
				Env:    env,
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}
	f := cmd.Flags()
	f.StringVar(&quizID, "quiz", "", "quiz id")
	f.StringVar(&userID, "user", "", "user id")
	f.StringVar(&role, "role", "student", "role: guest, student, teacher or admin")
	f.StringVar(&ip, "ip", "127.0.0.1", "client IP address")
	f.StringVar(&userAgent, "user-agent", "", "client user agent")
	f.StringVar(&pw, "password", "", "quiz password supplied by the client")
	f.StringSliceVar(&completed, "completed", nil, "completed activity ids")
	f.BoolVar(&secureWindow, "secure-window", false, "client runs in a secure window")
	_ = cmd.MarkFlagRequired("quiz")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
