// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"

	"github.com/tnptm/next-djchat/internal/app"
)

// writeEnv prints a KEY="value" line in the format godotenv reads back.
func writeEnv(w io.Writer, key, value string) {
	_, _ = fmt.Fprintf(w, "%s=%q\n", key, value)
}

// writeComment prints "# text", or an empty line when text is empty.
func writeComment(w io.Writer, text string) {
	if text == "" {
		_, _ = fmt.Fprintln(w)
		return
	}
	_, _ = fmt.Fprintf(w, "# %s\n", text)
}

// closeContainer releases every resource the container opened and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration source and database and logs any errors.
func closeMigrate(m *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := m.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}
