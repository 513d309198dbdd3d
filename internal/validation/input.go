package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Константы валидации
const (
	MinDisplayNameLength  = 2
	MaxDisplayNameLength  = 100
	MinItemNameLength     = 2
	MaxItemNameLength     = 200
	MaxLocationLength     = 200
	MaxDescriptionLength  = 2000
	MaxAdminRemarksLength = 1000
)

// ValidateLength проверяет длину строки.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.TrimSpace(email)
	email = strings.ToLower(email)

	// Базовая проверка формата
	if !strings.Contains(email, "@") {
		return fmt.Errorf("email должен содержать символ @")
	}

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}

	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	if !strings.Contains(domainPart, ".") {
		return fmt.Errorf("доменная часть email должна содержать точку")
	}

	emailRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !emailRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateNonEmpty проверяет, что строка не пустая.
func ValidateNonEmpty(fieldName, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s не может быть пустым", fieldName)
	}
	return nil
}

// ValidateDisplayName проверяет отображаемое имя пользователя.
func ValidateDisplayName(displayName string) error {
	if displayName == "" {
		return fmt.Errorf("отображаемое имя обязательно")
	}

	displayName = strings.TrimSpace(displayName)

	if err := ValidateLength("отображаемое имя", displayName, MinDisplayNameLength, MaxDisplayNameLength); err != nil {
		return err
	}

	displayNameRegex := regexp.MustCompile(`^[a-zA-Zа-яА-ЯёЁ0-9\s\-_.,!?()]+$`)
	if !displayNameRegex.MatchString(displayName) {
		return fmt.Errorf("отображаемое имя содержит недопустимые символы")
	}

	// Имя из одних знаков препинания не имеет смысла
	hasLetter := false
	for _, r := range displayName {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			hasLetter = true
			break
		}
	}
	if !hasLetter {
		return fmt.Errorf("отображаемое имя должно содержать буквы или цифры")
	}

	return nil
}

// ValidateItemName проверяет название предмета.
func ValidateItemName(name string) error {
	if name == "" {
		return fmt.Errorf("название предмета обязательно")
	}

	name = strings.TrimSpace(name)

	return ValidateLength("название предмета", name, MinItemNameLength, MaxItemNameLength)
}

// ValidateReportLocation проверяет место потери или находки.
func ValidateReportLocation(location string) error {
	if location == "" {
		return fmt.Errorf("место обязательно")
	}

	location = strings.TrimSpace(location)

	return ValidateLength("место", location, 1, MaxLocationLength)
}

// ValidateDescription проверяет описание предмета. Описание опционально,
// но ограничено по длине.
func ValidateDescription(description string) error {
	if description == "" {
		return nil
	}

	return ValidateLength("описание", strings.TrimSpace(description), 0, MaxDescriptionLength)
}

// ValidateAdminRemarks проверяет примечание администратора к решению.
func ValidateAdminRemarks(remarks string) error {
	if remarks == "" {
		return nil
	}

	return ValidateLength("примечание", strings.TrimSpace(remarks), 0, MaxAdminRemarksLength)
}

// ValidateDate проверяет дату потери или находки в формате YYYY-MM-DD.
// Дата не может быть в будущем.
func ValidateDate(date string) error {
	if date == "" {
		return nil
	}

	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return fmt.Errorf("дата должна быть в формате YYYY-MM-DD")
	}

	if parsed.After(time.Now()) {
		return fmt.Errorf("дата не может быть в будущем")
	}

	return nil
}
