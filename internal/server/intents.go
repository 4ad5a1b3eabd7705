package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/magefree/mage-tracker-go/internal/catalog"
	"github.com/magefree/mage-tracker-go/internal/random"
	"github.com/magefree/mage-tracker-go/internal/tracker"
	"go.uber.org/zap"
)

// Intent types accepted over HTTP and websocket.
const (
	IntentAddPlayer     = "add_player"
	IntentRemovePlayer  = "remove_player"
	IntentUpdatePlayer  = "update_player"
	IntentAdvanceTurn   = "advance_turn"
	IntentDecrementTurn = "decrement_turn"
	IntentAdjustStorm   = "adjust_storm"
	IntentChangeFormat  = "change_format"
	IntentChangeTheme   = "change_theme"
	IntentResetMatch    = "reset_match"
	IntentRollDie       = "roll_die"
	IntentFlipCoin      = "flip_coin"
)

// ErrUnknownIntent is returned for an unrecognised intent type.
var ErrUnknownIntent = errors.New("unknown intent")

// Intent is one user action. Which fields apply depends on Type and, for
// update_player, Command.
type Intent struct {
	Type       string `json:"type"`
	PlayerID   int    `json:"playerId,omitempty"`
	Command    string `json:"command,omitempty"`
	Delta      int    `json:"delta,omitempty"`
	Value      int    `json:"value,omitempty"`
	OpponentID int    `json:"opponentId,omitempty"`
	Name       string `json:"name,omitempty"`
	Color      string `json:"color,omitempty"`
	FormatID   string `json:"formatId,omitempty"`
	ThemeID    string `json:"themeId,omitempty"`
	Faces      int    `json:"faces,omitempty"`
}

// IntentResult is the answer to an intent. A rejected intent still reports
// the unchanged state.
type IntentResult struct {
	Success  bool          `json:"success"`
	Rejected string        `json:"rejected,omitempty"`
	State    tracker.State `json:"state"`
	Roll     int           `json:"roll,omitempty"`
	Coin     string        `json:"coin,omitempty"`
}

// decodeIntent parses one intent. Unknown fields are refused.
func decodeIntent(r io.Reader) (Intent, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var in Intent
	if err := dec.Decode(&in); err != nil {
		return Intent{}, err
	}
	return in, nil
}

// playerCommand maps an update_player intent onto a typed command.
func (in Intent) playerCommand() (tracker.Command, error) {
	switch in.Command {
	case "adjust_life":
		return tracker.AdjustLife{Delta: in.Delta}, nil
	case "set_poison":
		return tracker.SetPoison{Value: in.Value}, nil
	case "adjust_poison":
		return tracker.AdjustPoison{Delta: in.Delta}, nil
	case "adjust_energy":
		return tracker.AdjustEnergy{Delta: in.Delta}, nil
	case "adjust_experience":
		return tracker.AdjustExperience{Delta: in.Delta}, nil
	case "adjust_commander_damage":
		return tracker.AdjustCommanderDamage{OpponentID: in.OpponentID, Delta: in.Delta}, nil
	case "rename":
		return tracker.Rename{To: in.Name}, nil
	case "set_color":
		return tracker.SetColor{Color: catalog.Color(in.Color)}, nil
	default:
		return nil, fmt.Errorf("%q: %w", in.Command, tracker.ErrUnknownCommand)
	}
}

// dispatch applies in to the controller. Validation rejections are folded
// into the result; only faults are returned as errors.
func (s *Server) dispatch(in Intent) (IntentResult, error) {
	var (
		state tracker.State
		err   error
		res   IntentResult
	)

	switch in.Type {
	case IntentAddPlayer:
		state, err = s.controller.AddPlayer()
	case IntentRemovePlayer:
		state, err = s.controller.RemovePlayer(in.PlayerID)
	case IntentUpdatePlayer:
		cmd, cmdErr := in.playerCommand()
		if cmdErr != nil {
			state, err = s.controller.State(), cmdErr
			break
		}
		state, err = s.controller.UpdatePlayer(in.PlayerID, cmd)
	case IntentAdvanceTurn:
		state, err = s.controller.AdvanceTurn()
	case IntentDecrementTurn:
		state, err = s.controller.DecrementTurn()
	case IntentAdjustStorm:
		state, err = s.controller.AdjustStorm(in.Delta)
	case IntentChangeFormat:
		state, err = s.controller.ChangeFormat(in.FormatID)
	case IntentChangeTheme:
		state, err = s.controller.ChangeTheme(in.ThemeID)
	case IntentResetMatch:
		state, err = s.controller.ResetMatch()
	case IntentRollDie:
		var value int
		s.randomizerMu.Lock()
		state, value, err = s.controller.RollDie(in.Faces)
		if err == nil {
			res.Roll = value
			s.animateDie(in.Faces, value)
		}
		s.randomizerMu.Unlock()
	case IntentFlipCoin:
		var coin random.Coin
		s.randomizerMu.Lock()
		state, coin, err = s.controller.FlipCoin()
		if err == nil {
			res.Coin = coin.String()
			s.animateCoin(coin)
		}
		s.randomizerMu.Unlock()
	default:
		return IntentResult{State: s.controller.State(), Rejected: ErrUnknownIntent.Error()},
			fmt.Errorf("%q: %w", in.Type, ErrUnknownIntent)
	}

	res.State = state
	if err != nil {
		if !tracker.IsRejection(err) {
			return res, err
		}
		res.Rejected = err.Error()
		return res, nil
	}
	res.Success = true
	return res, nil
}

func (s *Server) animateDie(faces, value int) {
	src := s.cosmetic.Source()
	anim := random.Animation{
		Kind:     "roll",
		Frames:   s.randomizer.DieFrames,
		Interval: s.randomizer.DieInterval,
		Next:     func() string { return strconv.Itoa(src.Intn(faces) + 1) },
	}
	s.play(anim, strconv.Itoa(value), zap.Int("faces", faces))
}

func (s *Server) animateCoin(coin random.Coin) {
	anim := random.Animation{
		Kind:     "coin",
		Frames:   s.randomizer.CoinFrames,
		Interval: s.randomizer.CoinInterval,
		Next:     func() string { return s.cosmetic.FlipCoin().String() },
	}
	s.play(anim, coin.String())
}

func (s *Server) play(anim random.Animation, final string, fields ...zap.Field) {
	s.logger.Debug("randomizer sequence started",
		append(fields, zap.String("kind", anim.Kind), zap.String("final", final))...)

	s.sequencer.Play(s.ctx, anim, final, func(f random.Frame) {
		msgType := f.Kind + "_frame"
		if f.Final {
			msgType = f.Kind + "_settled"
		}
		s.hub.Broadcast(Message{Type: msgType, Data: FrameView{Value: f.Value, Final: f.Final}})
	})
}
