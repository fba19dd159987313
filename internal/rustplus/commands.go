package rustplus

import (
	"context"
	"strings"
)

// CommandPrefix — команды в тим-чате начинаются с "!".
const CommandPrefix = "!"

// CommandFunc обрабатывает команду; ok=false — команда неизвестна.
type CommandFunc func(ctx context.Context, user, command, args string) (reply string, ok bool)

// HandleCommands подписывает handle на команды из тим-чата. Ответ уходит
// туда же; на неизвестную команду бот подсказывает !help.
func (c *Client) HandleCommands(handle CommandFunc) {
	c.OnTeamMessage(func(ctx context.Context, tm TeamMessage) {
		cmd, args, ok := ParseCommand(tm.Message)
		if !ok {
			return
		}
		log := c.log.WithField("command", cmd).WithField("user", tm.Name)

		reply, known := handle(ctx, tm.Name, cmd, args)
		if !known {
			reply = "unknown command, try " + CommandPrefix + "help"
		}
		if err := c.Send(ctx, "team", reply); err != nil {
			log.WithError(err).Error("reply failed")
			return
		}
		log.Info("command handled")
	})
}

// ParseCommand выделяет команду и аргументы из "!status foo bar".
func ParseCommand(text string) (cmd, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, CommandPrefix) {
		return "", "", false
	}
	text = strings.TrimPrefix(text, CommandPrefix)
	cmd, args, _ = strings.Cut(text, " ")
	cmd = strings.ToLower(cmd)
	if cmd == "" {
		return "", "", false
	}
	return cmd, strings.TrimSpace(args), true
}
