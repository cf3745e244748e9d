package messages

import (
	"fmt"
	"html"
)

const (
	HelpText = "🍡 Estos son los comandos disponibles:\n\n" +
		"/start - saludo de bienvenida\n" +
		"/help - muestra esta ayuda\n" +
		"/seikened <b>usuario</b> - muestra el perfil de GitHub del usuario\n" +
		"/chat - muestra el identificador de este chat\n\n" +
		"Envíame un texto y te lo devolveré, o una nota de voz de hasta 60 segundos y la transcribiré."

	PermissionDenied = "⛔ No tienes permiso para usar este bot."

	MentionReply = "¡Me has mencionado! ¿En qué puedo ayudarte?"
	AyudaReply   = "¿Necesitas ayuda? Aquí estoy para asistirte."

	TranscriptionPrefix      = "🎙️ Transcripción:\n"
	TranscriptionEmpty       = "🎙️ No se detectó voz en el audio."
	TranscriptionUnavailable = "🎙️ La transcripción de audio no está disponible."

	ProfileUsage = "Uso: /seikened <usuario>"

	fallbackUserName = "usuario"
)

func Welcome(name string) string {
	if name == "" {
		name = fallbackUserName
	}
	return fmt.Sprintf("¡Hola, %s! 🍡 Envíame un mensaje y te lo devolveré.", name)
}

func ChatInfo(chatID int64, kind string) string {
	return fmt.Sprintf("Este chat tiene el id <code>%d</code> (%s).", chatID, html.EscapeString(kind))
}

// Scolding is an HTML message which mentions the user by a clickable link.
func Scolding(userID int64, name string) string {
	if name == "" {
		name = fallbackUserName
	}
	return fmt.Sprintf(
		`🚫 <a href="tg://user?id=%d">%s</a>, tu mensaje fue eliminado por contener lenguaje no permitido. Por favor, mantén el respeto.`,
		userID, html.EscapeString(name),
	)
}

func VoiceTooLong(limitSeconds int) string {
	return fmt.Sprintf("⚠️ El audio supera el límite de %d segundos.", limitSeconds)
}

func ProfileNotFound(username string) string {
	return fmt.Sprintf("Usuario %s no encontrado", username)
}
