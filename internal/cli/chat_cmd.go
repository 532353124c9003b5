package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/aimylabs/aimy/internal/chat"
	"github.com/aimylabs/aimy/internal/config"
	"github.com/aimylabs/aimy/internal/ingest"
	"github.com/aimylabs/aimy/internal/prechat"
	"github.com/aimylabs/aimy/internal/session"
	"github.com/aimylabs/aimy/internal/store"
	"github.com/spf13/cobra"
)

func newChatCmd() *cobra.Command {
	var (
		serial string
		hours  string
		faults string
		reset  bool
	)

	cmd := &cobra.Command{
		Use:   "chat [vraag...]",
		Short: "Chat with AIMY about a machine fault",
		Long: "Starts an interactive diagnosis session. The machine intake (serial number, " +
			"operating hours, fault codes) is asked once and kept until you reset it. " +
			"With a question as argument the answer is printed once and the command exits.",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openEnv()
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sess := env.restoreSession()
			in := bufio.NewScanner(os.Stdin)
			in.Buffer(make([]byte, 0, 64*1024), 1024*1024)

			if serial != "" || hours != "" || faults != "" {
				payload := prechat.Payload{SerialNumber: serial, Hours: hours, FaultCodes: faults}
				pc := prechatFromPayload(payload)
				if !pc.Valid {
					return intakeError(prechat.Validate(prechat.BuildState(payload)))
				}
				applyPrechat(env, sess, pc)
			}

			if !sess.Prechat().Ready {
				if len(args) > 0 {
					return errors.New("machinegegevens ontbreken; geef --serial en --hours mee")
				}
				if err := runIntake(env, sess, in); err != nil {
					return err
				}
			}

			temperature := env.cfg.Webhook.Temperature
			if env.settings.Temperature != nil {
				temperature = env.settings.Temperature
			}

			client, demo := env.newWebhookClient()
			ctrl := chat.NewController(chat.Options{
				Session:         sess,
				Store:           env.store,
				Client:          client,
				Log:             log,
				HistoryLimit:    env.cfg.Chat.HistoryLimit,
				MaxPromptLength: env.cfg.Chat.MaxPromptLength,
				Temperature:     derefFloat(temperature),
				Citations:       derefBool(env.cfg.Webhook.Citations),
				ShowCitations:   env.settings.ShowCitations,
				OnChunk:         func(chunk string) { fmt.Print(chunk) },
			})

			if reset {
				ctrl.ResetChat()
			}
			ctrl.SharePrechatIntro()

			if demo {
				fmt.Println("(demo-modus: geen webhook URL ingesteld)")
				fmt.Println()
			}

			if len(args) > 0 {
				question := strings.Join(args, " ")
				fmt.Printf("jij> %s\n\n", question)
				return sendOnce(ctx, ctrl, question)
			}

			printTranscript(sess.Messages())
			loop := &chatLoop{env: env, sess: sess, ctrl: ctrl, in: in}
			return loop.run(ctx)
		},
	}

	cmd.Flags().StringVar(&serial, "serial", "", "machine serial number")
	cmd.Flags().StringVar(&hours, "hours", "", "operating hours")
	cmd.Flags().StringVar(&faults, "faults", "", "comma separated fault codes")
	cmd.Flags().BoolVar(&reset, "reset", false, "start a fresh conversation first")

	return cmd
}

func derefFloat(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func derefBool(v *bool) bool {
	if v == nil {
		return false
	}
	return *v
}

func applyPrechat(env *runtimeEnv, sess *session.State, pc session.Prechat) {
	sess.SetPrechat(pc)
	env.store.SavePrechat(store.PrechatDump{
		SerialNumber: pc.SerialNumber,
		Hours:        pc.Hours,
		FaultCodes:   pc.FaultCodes,
	})
}

func intakeError(v prechat.Validation) error {
	var parts []string
	if v.Errors.SerialNumber != "" {
		parts = append(parts, v.Errors.SerialNumber)
	}
	if v.Errors.Hours != "" {
		parts = append(parts, v.Errors.Hours)
	}
	return errors.New(strings.Join(parts, " "))
}

// runIntake prompts for machine data until it validates. Stored values
// are offered as defaults.
func runIntake(env *runtimeEnv, sess *session.State, in *bufio.Scanner) error {
	fmt.Println("Machinegegevens (verplicht voor diagnose):")
	current := sess.Prechat()
	payload := prechat.Payload{
		SerialNumber: current.SerialNumber,
		Hours:        current.Hours,
		FaultCodes:   current.FaultCodes,
	}
	for {
		var ok bool
		if payload.SerialNumber, ok = ask(in, "Serienummer", payload.SerialNumber); !ok {
			return errors.New("invoer afgebroken")
		}
		if payload.Hours, ok = ask(in, "Urenstand", payload.Hours); !ok {
			return errors.New("invoer afgebroken")
		}
		if payload.FaultCodes, ok = ask(in, "Foutcodes (optioneel)", payload.FaultCodes); !ok {
			return errors.New("invoer afgebroken")
		}

		validation := prechat.Validate(prechat.BuildState(payload))
		if validation.Valid {
			break
		}
		if validation.Errors.SerialNumber != "" {
			fmt.Println("  " + validation.Errors.SerialNumber)
		}
		if validation.Errors.Hours != "" {
			fmt.Println("  " + validation.Errors.Hours)
		}
	}
	applyPrechat(env, sess, prechatFromPayload(payload))
	fmt.Println()
	return nil
}

func ask(in *bufio.Scanner, label, current string) (string, bool) {
	if current != "" {
		fmt.Printf("%s [%s]: ", label, current)
	} else {
		fmt.Printf("%s: ", label)
	}
	if !in.Scan() {
		return current, false
	}
	if text := strings.TrimSpace(in.Text()); text != "" {
		return text, true
	}
	return current, true
}

func sendOnce(ctx context.Context, ctrl *chat.Controller, question string) error {
	fmt.Print("AIMY> ")
	err := ctrl.Send(ctx, question)
	fmt.Println()
	if err != nil {
		fmt.Println(chat.FailureNotice)
		return err
	}
	fmt.Println()
	return nil
}

type chatLoop struct {
	env  *runtimeEnv
	sess *session.State
	ctrl *chat.Controller
	in   *bufio.Scanner
}

func (l *chatLoop) run(ctx context.Context) error {
	fmt.Println("Typ je vraag, of een commando: /docs, /doc add <pad>, /doc rm <id>, /prechat, /settings, /reset, /retry, /quit")
	fmt.Println()
	for {
		fmt.Print("jij> ")
		if !l.in.Scan() {
			fmt.Println()
			return l.in.Err()
		}
		line := strings.TrimSpace(l.in.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			if quit := l.command(ctx, line); quit {
				return nil
			}
			continue
		}
		l.send(ctx, line)
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (l *chatLoop) send(ctx context.Context, text string) {
	fmt.Print("\nAIMY> ")
	err := l.ctrl.Send(ctx, text)
	switch {
	case err == nil:
		fmt.Print("\n\n")
	case errors.Is(err, chat.ErrNotReady):
		fmt.Println("Vul eerst de machinegegevens in met /prechat.")
	case errors.Is(err, chat.ErrEmptyPrompt):
		fmt.Println()
	case errors.Is(err, chat.ErrBusy):
		fmt.Println("Er is al een verzoek bezig.")
	default:
		fmt.Printf("%s\nGebruik /retry om het opnieuw te proberen.\n\n", chat.FailureNotice)
	}
}

func (l *chatLoop) command(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true

	case "/reset":
		if l.ctrl.ResetChat() {
			fmt.Println("Nieuw gesprek gestart.")
			fmt.Println()
			printTranscript(l.sess.Messages())
		}

	case "/retry":
		if !l.ctrl.CanRetry() {
			fmt.Println("Er is niets om opnieuw te proberen.")
			break
		}
		fmt.Print("\nAIMY> ")
		if err := l.ctrl.Retry(ctx); err != nil {
			fmt.Printf("%s\n\n", chat.FailureNotice)
		} else {
			fmt.Print("\n\n")
		}

	case "/docs":
		printDocs(l.sess.Docs())

	case "/doc":
		l.docCommand(ctx, fields[1:])

	case "/prechat":
		if err := runIntake(l.env, l.sess, l.in); err != nil {
			fmt.Println(err)
			break
		}
		l.ctrl.SharePrechatIntro()
		l.persist()

	case "/settings":
		l.settingsCommand(fields[1:])

	default:
		fmt.Printf("Onbekend commando: %s\n", fields[0])
	}
	return false
}

func (l *chatLoop) persist() {
	persistSession(l.env, l.sess)
}

func (l *chatLoop) docCommand(ctx context.Context, args []string) {
	if len(args) < 2 {
		fmt.Println("Gebruik: /doc add <pad> of /doc rm <id>")
		return
	}
	client := ingest.NewClient(l.env.cfg.Ingest.BaseURL, log)
	switch args[0] {
	case "add":
		doc, err := client.Upload(ctx, args[1], l.sess.ChatID())
		if err != nil {
			fmt.Println(err)
			return
		}
		l.sess.AddDoc(doc)
		l.persist()
		fmt.Printf("Toegevoegd: %s (%s)\n", doc.Name, doc.ID)
	case "rm":
		if !l.sess.RemoveDoc(args[1]) {
			fmt.Println("Onbekend document:", args[1])
			return
		}
		client.Remove(ctx, args[1])
		l.persist()
		fmt.Println("Verwijderd:", args[1])
	default:
		fmt.Println("Gebruik: /doc add <pad> of /doc rm <id>")
	}
}

func (l *chatLoop) settingsCommand(args []string) {
	s := l.env.settings
	if len(args) == 0 {
		url := s.WebhookURL
		if url == "" {
			url = "(demo)"
		}
		fmt.Printf("webhook: %s\nauth header: %s\ncitations: %v\n", url, s.AuthHeader, s.ShowCitations)
		if s.Temperature != nil {
			fmt.Printf("temperature: %g\n", *s.Temperature)
		}
		return
	}
	switch args[0] {
	case "url":
		if len(args) < 2 {
			s.WebhookURL = ""
		} else {
			s.WebhookURL = args[1]
		}
	case "auth":
		if len(args) < 3 {
			fmt.Println("Gebruik: /settings auth <header> <waarde>")
			return
		}
		s.AuthHeader = config.SanitizeHeaderName(args[1])
		s.AuthValue = config.SanitizeHeaderValue(args[2])
	case "citations":
		s.ShowCitations = len(args) > 1 && args[1] == "on"
	case "temperature":
		if len(args) < 2 {
			s.Temperature = nil
			break
		}
		v, err := strconv.ParseFloat(args[1], 64)
		if err != nil || v < 0 || v > 2 {
			fmt.Println("Gebruik een getal tussen 0 en 2.")
			return
		}
		s.Temperature = &v
	default:
		fmt.Println("Gebruik: /settings [url <url> | auth <header> <waarde> | citations on|off | temperature <0..2>]")
		return
	}
	l.env.store.SaveSettings(s)
	l.env.settings = l.env.store.LoadSettings()
	fmt.Println("Opgeslagen. Nieuwe webhook-instellingen gelden bij de volgende start.")
}
