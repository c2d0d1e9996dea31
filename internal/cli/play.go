package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pegboard/mastermind/internal/model"
	"github.com/pegboard/mastermind/internal/protocol"
)

func newPlayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "play",
		Short: "Join the matchmaking queue and play",
		Long: `Connect to the server, queue for a match and play interactively.

You are assigned a role when an opponent is found:
  guesser: enter guesses until you crack the code or run out of turns
  scorer:  set the secret code, then grade each guess with pegs

Codes are entered as digits ("1234" or "1 2 3 4"). Pegs are entered as one
letter per position: b (right color, right place), w (right color, wrong
place), - (no match). Type /say <text> at any time to chat.

A session token is saved locally; restarting the client resumes the same
game. Press Ctrl+C to quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay()
		},
	}
}

type promptReq struct {
	text string
	resp chan string
}

// console serializes stdin between interactive prompts and freestanding
// chat input
type console struct {
	client  *Client
	lines   chan string
	prompts chan promptReq
}

func newConsole(client *Client) *console {
	c := &console{
		client:  client,
		lines:   make(chan string),
		prompts: make(chan promptReq),
	}
	go c.readStdin()
	return c
}

func (c *console) readStdin() {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		c.lines <- scanner.Text()
	}
	close(c.lines)
}

func (c *console) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-c.prompts:
			c.answer(ctx, req)
		case line, ok := <-c.lines:
			if !ok {
				return
			}
			c.handleIdle(line)
		}
	}
}

func (c *console) answer(ctx context.Context, req promptReq) {
	fmt.Print(req.text)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-c.lines:
			if !ok {
				return
			}
			// Chat stays available mid-prompt
			if text, isChat := chatLine(line); isChat {
				c.say(text)
				fmt.Print(req.text)
				continue
			}
			req.resp <- line
			return
		}
	}
}

func (c *console) handleIdle(line string) {
	if text, isChat := chatLine(line); isChat {
		c.say(text)
		return
	}
	if strings.TrimSpace(line) != "" {
		fmt.Println("(waiting for the game; use /say <text> to chat)")
	}
}

func (c *console) say(text string) {
	if err := c.client.Send(protocol.KindChat, protocol.ChatPayload{Text: text}); err != nil {
		fmt.Printf("could not send chat: %v\n", err)
	}
}

// prompt blocks until the user answers
func (c *console) prompt(text string) string {
	resp := make(chan string)
	c.prompts <- promptReq{text: text, resp: resp}
	return <-resp
}

func chatLine(line string) (string, bool) {
	if strings.HasPrefix(line, "/say ") {
		return strings.TrimPrefix(line, "/say "), true
	}
	return "", false
}

func runPlay() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nleaving")
		cancel()
	}()

	cons := newConsole(client)
	go cons.run(ctx)

	client.OnCommand(protocol.KindRole, func(env protocol.Envelope) {
		var role protocol.RolePayload
		if err := env.Decode(&role); err != nil {
			return
		}
		switch role.Role {
		case protocol.RoleGuesser:
			fmt.Println("Match found! You are the guesser.")
		case protocol.RoleScorer:
			fmt.Println("Match found! You are the scorer.")
		}
	})

	client.OnCommand(protocol.KindSetup, func(env protocol.Envelope) {
		for {
			code, err := parseCode(cons.prompt("Set your secret code: "))
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := client.Send(protocol.KindSetup, protocol.SetupPayload{Code: code}); err != nil {
				fmt.Printf("could not send code: %v\n", err)
			}
			return
		}
	})

	client.OnCommand(protocol.KindGuess, func(env protocol.Envelope) {
		var req protocol.GuessRequestPayload
		if err := env.Decode(&req); err != nil {
			return
		}
		if req.PreviousScore != nil {
			fmt.Printf("Last guess scored %d black, %d white.\n",
				req.PreviousScore.Black, req.PreviousScore.White)
		}
		for {
			guess, err := parseCode(cons.prompt("Your guess: "))
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := client.Send(protocol.KindGuess, protocol.GuessPayload{Guess: guess}); err != nil {
				fmt.Printf("could not send guess: %v\n", err)
			}
			return
		}
	})

	client.OnCommand(protocol.KindScore, func(env protocol.Envelope) {
		var req protocol.ScoreRequestPayload
		if err := env.Decode(&req); err != nil {
			return
		}
		fmt.Printf("Opponent guessed %s.\n", formatCode(req.Guess))
		for {
			pegs, err := parsePegs(cons.prompt("Score it (b/w/-): "))
			if err != nil {
				fmt.Println(err)
				continue
			}
			if err := client.Send(protocol.KindScore, protocol.ScorePayload{Pegs: pegs}); err != nil {
				fmt.Printf("could not send score: %v\n", err)
			}
			return
		}
	})

	client.OnCommand(protocol.KindScoreOK, func(env protocol.Envelope) {
		var verdict protocol.ScoreOKPayload
		if err := env.Decode(&verdict); err != nil {
			return
		}
		if verdict.OK {
			fmt.Println("Score accepted.")
		} else {
			fmt.Println("That score does not match your secret code. Try again.")
		}
	})

	client.OnCommand(protocol.KindGameOver, func(env protocol.Envelope) {
		var over protocol.GameOverPayload
		if err := env.Decode(&over); err != nil {
			return
		}
		switch over.Outcome {
		case model.OutcomeWon:
			fmt.Printf("Game over: the code %s was cracked in %d turns.\n",
				formatCode(over.Setup), over.Turns)
		case model.OutcomeLost:
			fmt.Printf("Game over: the code %s survived all %d turns.\n",
				formatCode(over.Setup), over.Turns)
		case model.OutcomeAbandoned:
			fmt.Println("Game abandoned: your opponent is gone. Waiting for a new match...")
		}
	})

	client.OnEvent(protocol.KindTurn, func(env protocol.Envelope) {
		var turn protocol.TurnPayload
		if err := env.Decode(&turn); err != nil {
			return
		}
		fmt.Printf("Turn %d: %s scored %d black, %d white.\n",
			turn.Number, formatCode(turn.Guess), turn.Score.Black, turn.Score.White)
	})

	client.OnEvent(protocol.KindChat, func(env protocol.Envelope) {
		var msg protocol.ChatPayload
		if err := env.Decode(&msg); err != nil {
			return
		}
		fmt.Printf("[%s] %s\n", msg.From, msg.Text)
	})

	fmt.Printf("Connecting to %s as %q...\n", cfg.ServerURL, cfg.DisplayName)
	return client.Run(ctx)
}

// parseCode reads a code entered as digits, with or without spaces
func parseCode(input string) (model.Code, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(input), " ", "")
	if cleaned == "" {
		return nil, fmt.Errorf("enter a code as digits, e.g. 1234")
	}
	code := make(model.Code, 0, len(cleaned))
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("invalid character %q: codes are digits only", r)
		}
		code = append(code, model.Color(r-'0'))
	}
	return code, nil
}

// parsePegs reads a peg string, one letter per position
func parsePegs(input string) ([]model.ScorePeg, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(input), " ", "")
	if cleaned == "" {
		return nil, fmt.Errorf("enter pegs as b, w or -, e.g. bbw-")
	}
	pegs := make([]model.ScorePeg, 0, len(cleaned))
	for _, r := range cleaned {
		switch r {
		case 'b', 'B':
			pegs = append(pegs, model.PegBlack)
		case 'w', 'W':
			pegs = append(pegs, model.PegWhite)
		case '-', '.':
			pegs = append(pegs, model.PegNone)
		default:
			return nil, fmt.Errorf("invalid peg %q: use b, w or -", r)
		}
	}
	return pegs, nil
}

func formatCode(code model.Code) string {
	var b strings.Builder
	for _, c := range code {
		fmt.Fprintf(&b, "%d", c)
	}
	return b.String()
}
